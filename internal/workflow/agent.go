package workflow

import "strings"

// Agent describes one agent the playground can run on its own.
type Agent struct {
	Type        string
	Label       string
	Description string
	Examples    []string
}

var agents = []Agent{
	{
		Type:        "role_definition",
		Label:       "Role Definition Agent",
		Description: "Define job roles and requirements",
		Examples: []string{
			"We need a senior backend engineer to own our payments platform.",
			"Define a product designer role for a two-person design team.",
		},
	},
	{
		Type:        "jd_generator",
		Label:       "JD Generator Agent",
		Description: "Create compelling job descriptions",
		Examples: []string{
			"Write a job description for a remote data scientist working on fraud models.",
			"Create a JD for a frontend engineer focused on our React design system.",
		},
	},
	{
		Type:        "interview_planner",
		Label:       "Interview Planner Agent",
		Description: "Design interview processes",
		Examples: []string{
			"Plan a four-round interview loop for a staff platform engineer.",
			"Design a take-home exercise and debrief for a product manager.",
		},
	},
}

// Agents returns the agents available in the playground.
func Agents() []Agent {
	out := make([]Agent, len(agents))
	copy(out, agents)
	return out
}

// AgentTypes returns the wire identifiers of every agent.
func AgentTypes() []string {
	types := make([]string, 0, len(agents))
	for _, a := range agents {
		types = append(types, a.Type)
	}
	return types
}

// LookupAgent finds an agent by wire identifier.
func LookupAgent(agentType string) (Agent, bool) {
	agentType = strings.TrimSpace(agentType)
	for _, a := range agents {
		if a.Type == agentType {
			return a, true
		}
	}
	return Agent{}, false
}

// ExamplePrompts are offered on the new hiring screen.
var ExamplePrompts = []string{
	"We need a Senior Backend Engineer for our fintech startup. Should have 5+ years experience with Python, AWS, and microservices. Will lead our payment processing team.",
	"Looking for a Product Manager to drive our mobile app strategy. Need someone with B2C experience, data-driven mindset, and strong stakeholder management skills.",
	"Hiring a Data Scientist for our AI/ML team. Requirements: PhD or Masters in relevant field, experience with deep learning, and Python/TensorFlow expertise.",
	"Need a Frontend Engineer to build our React dashboard. Looking for someone with 3+ years React experience, TypeScript, and design system knowledge.",
}
