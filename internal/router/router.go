// Package router maps paths to screens and applies the auth guard.
//
// Paths mirror the web client's URLs so they can be logged, typed into the
// command bar and carried in the "from" parameter of a login redirect.
package router

import (
	"fmt"
	"net/url"
	"strings"
)

// Name identifies a screen.
type Name string

const (
	Login         Name = "login"
	Register      Name = "register"
	Dashboard     Name = "dashboard"
	NewHiring     Name = "new-hiring"
	HiringDetails Name = "hiring"
	Profiles      Name = "profiles"
	Playground    Name = "playground"
	Account       Name = "account"
)

// Public reports whether a screen is reachable without a session.
func (n Name) Public() bool {
	return n == Login || n == Register
}

// Title is the sidebar label.
func (n Name) Title() string {
	switch n {
	case Login:
		return "Sign in"
	case Register:
		return "Create account"
	case Dashboard:
		return "Dashboard"
	case NewHiring:
		return "New Hiring"
	case HiringDetails:
		return "Hiring Details"
	case Profiles:
		return "Profiles"
	case Playground:
		return "Agent Playground"
	case Account:
		return "Account"
	default:
		return string(n)
	}
}

// Navigation lists the screens shown in the sidebar, in order.
var Navigation = []Name{Dashboard, NewHiring, Profiles, Playground, Account}

// Location is a resolved path.
type Location struct {
	Name      Name
	SessionID string
	// From is the path the user originally asked for; set on /login redirects.
	From string
}

// Path renders the location back into its URL form.
func (l Location) Path() string {
	var p string
	switch l.Name {
	case HiringDetails:
		p = "/hiring/" + url.PathEscape(l.SessionID)
	case "":
		p = "/dashboard"
	default:
		p = "/" + string(l.Name)
	}
	if l.From != "" {
		p += "?from=" + url.QueryEscape(l.From)
	}
	return p
}

// To builds a location for a screen without parameters.
func To(name Name) Location {
	return Location{Name: name}
}

// Hiring builds the details location of a session.
func Hiring(sessionID string) Location {
	return Location{Name: HiringDetails, SessionID: sessionID}
}

// Parse resolves a path. "/" and unknown paths fall back to the dashboard,
// matching the catch-all route.
func Parse(raw string) Location {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return To(Dashboard)
	}
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	loc := To(Dashboard)
	switch Name(segments[0]) {
	case Login, Register, Dashboard, NewHiring, Profiles, Playground, Account:
		if len(segments) == 1 {
			loc = To(Name(segments[0]))
		}
	case HiringDetails:
		if len(segments) == 2 && segments[1] != "" {
			id, err := url.PathUnescape(segments[1])
			if err == nil {
				loc = Hiring(id)
			}
		}
	}
	if loc.Name == Login {
		loc.From = u.Query().Get("from")
	}
	return loc
}

// AuthView is what the guard needs to know about the session.
type AuthView struct {
	Authenticated bool
	// Validating is true while a stored token is being checked.
	Validating bool
}

// Decision is the guard's verdict for a navigation.
type Decision struct {
	Location Location
	// Loading asks the view to show the authenticating screen instead of
	// Location until validation settles.
	Loading bool
}

// Guard applies the access rules to target:
//   - protected screens wait on validation, then require a session;
//   - unauthenticated users are sent to /login with from preserved;
//   - signed-in users never see /login or /register.
func Guard(target Location, auth AuthView) Decision {
	if target.Name == "" {
		target = To(Dashboard)
	}
	if target.Name.Public() {
		if auth.Authenticated {
			return Decision{Location: AfterLogin(target)}
		}
		return Decision{Location: target}
	}
	if auth.Validating {
		return Decision{Location: target, Loading: true}
	}
	if !auth.Authenticated {
		return Decision{Location: Location{Name: Login, From: target.Path()}}
	}
	return Decision{Location: target}
}

// AfterLogin is where a successful sign-in from loc leads.
func AfterLogin(loc Location) Location {
	if loc.From == "" {
		return To(Dashboard)
	}
	next := Parse(loc.From)
	if next.Name.Public() {
		return To(Dashboard)
	}
	return next
}

// Router tracks the current location and a back stack.
type Router struct {
	current Location
	history []Location
}

// New starts at loc.
func New(loc Location) *Router {
	return &Router{current: loc}
}

// Current returns the active location.
func (r *Router) Current() Location {
	return r.current
}

// Navigate applies the guard and moves to the result. It returns the
// decision so the view can render the loading screen.
func (r *Router) Navigate(target Location, auth AuthView) Decision {
	d := Guard(target, auth)
	if d.Location != r.current {
		r.history = append(r.history, r.current)
		if len(r.history) > 50 {
			r.history = r.history[len(r.history)-50:]
		}
	}
	r.current = d.Location
	return d
}

// Replace moves without recording history, for redirects.
func (r *Router) Replace(target Location, auth AuthView) Decision {
	d := Guard(target, auth)
	r.current = d.Location
	return d
}

// Back pops the history, re-applying the guard. It reports false when the
// stack is empty.
func (r *Router) Back(auth AuthView) (Decision, bool) {
	for len(r.history) > 0 {
		prev := r.history[len(r.history)-1]
		r.history = r.history[:len(r.history)-1]
		d := Guard(prev, auth)
		if d.Location == r.current {
			continue
		}
		r.current = d.Location
		return d, true
	}
	return Decision{Location: r.current}, false
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return fmt.Sprintf("%s (%s)", l.Name.Title(), l.Path())
}
