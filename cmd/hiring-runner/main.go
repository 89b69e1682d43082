package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/config"
	"github.com/kingrea/hiremind/internal/forms"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/logbook"
	"github.com/kingrea/hiremind/internal/poller"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/session"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/tokenstore"
	"github.com/kingrea/hiremind/internal/workflow"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	login := flag.String("login", "", "email or username to sign in with (prompts for the password)")
	description := flag.String("description", "", "role description to plan a hiring for")
	company := flag.String("company", "", "company name")
	department := flag.String("department", "", "department (optional)")
	projectDir := flag.String("project", "", "directory holding .hiremind (defaults to cwd)")
	pollInterval := flag.Duration("poll", 0, "poll interval while waiting for completion (defaults to config)")
	flag.Parse()

	form := forms.NewHiring{Description: *description, CompanyName: *company, Department: *department}
	if errs := forms.Validate(form); errs != nil {
		for _, msg := range errs {
			fmt.Fprintln(os.Stderr, msg)
		}
		flag.Usage()
		return 2
	}

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			return fail("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		return fail("resolve project dir: %v", err)
	}
	if err := config.InitHiremindDir(absoluteProject); err != nil {
		return fail("init .hiremind: %v", err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		return fail("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err != nil {
		lb = nil
	}
	tokens := tokenstore.New(cfg.TokenPath())
	st := store.New()
	var sess *session.Service
	client := api.New(cfg.BaseURL(),
		api.WithTokenSource(tokens),
		api.OnUnauthorized(func(e *api.Error) { sess.HandleUnauthorized(e) }),
	)
	sess = session.New(client, tokens, st, session.WithLogbook(lb.WithScope("runner")))
	svc := hiring.New(client, st, querycache.New(), hiring.WithLogbook(lb.WithScope("runner")))

	if *login != "" {
		password, err := readPassword(fmt.Sprintf("Password for %s: ", *login))
		if err != nil {
			return fail("read password: %v", err)
		}
		if err := sess.Login(ctx, api.LoginRequest{EmailOrUsername: *login, Password: password}); err != nil {
			return fail("sign in: %s", st.Auth().Error)
		}
	} else if err := sess.Validate(ctx); err != nil {
		return fail("no usable session (%s); run with -login", st.Auth().Error)
	}
	fmt.Printf("Signed in as %s\n", st.Auth().User.DisplayName())

	resp, err := svc.StartWorkflow(ctx, form.Request())
	if err != nil {
		return fail("start workflow: %s", st.Workflow().Error)
	}
	fmt.Printf("Workflow %s started\n", resp.SessionID)

	// Print each stage once as it completes.
	var mu sync.Mutex
	printed := 0
	unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for ; printed < len(snap.Workflow.CompletedStages); printed++ {
			stage := workflow.ParseStage(snap.Workflow.CompletedStages[printed])
			fmt.Printf("  ✓ %d/%d %s\n", printed+1, len(workflow.Stages()), stage.Label())
		}
	})
	defer unsubscribe()

	pollCfg := poller.Config{Interval: cfg.PollInterval(), MaxAttempts: cfg.MaxPollAttempts()}
	if *pollInterval > 0 {
		pollCfg.Interval = *pollInterval
	}
	ctl := poller.NewController(pollCfg)
	done := make(chan poller.Reason, 1)
	tracked := svc.Track(ctx, ctl, resp.SessionID, func(r poller.Reason) { done <- r })

	started := time.Now()
	reason := <-done
	elapsed := time.Since(started).Round(time.Second)
	switch reason {
	case poller.ReasonCompleted:
		fmt.Printf("%s after %s. Session: %s\n", hiring.MsgWorkflowReady, elapsed, resp.SessionID)
		return 0
	case poller.ReasonFailed:
		return fail("Workflow failed: %s", st.Workflow().Error)
	case poller.ReasonExhausted:
		return fail("%s Session: %s", hiring.MsgStillRunning, resp.SessionID)
	case poller.ReasonCancelled:
		return fail("Interrupted. The workflow keeps running on the server. Session: %s", resp.SessionID)
	default:
		return fail("%s: %v", hiring.MsgStatusFailed, tracked.Err())
	}
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so passwords can be piped in scripts.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return 1
}
