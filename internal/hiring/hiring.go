// Package hiring implements the workflow, agent and profile actions. Reads
// go through the query cache; writes go straight to the API and then
// invalidate the keys they affect. Workflow progress lands in the store.
package hiring

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/logbook"
	"github.com/kingrea/hiremind/internal/poller"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/workflow"
)

const (
	// RecentProfilesLimit is how many profiles the dashboard shows.
	RecentProfilesLimit = 5
	// ProfilesLimit is the page size of the profiles screen.
	ProfilesLimit = 20

	MsgStartFailed   = "Failed to start workflow"
	MsgStatusFailed  = "Failed to fetch workflow status"
	MsgAgentFailed   = "Failed to run agent"
	MsgDeleted       = "Profile deleted successfully"
	MsgDeleteFailed  = "Failed to delete profile"
	MsgStillRunning  = "The workflow is still running. Check the profile details later."
	MsgWorkflowReady = "Hiring plan ready"
)

// Service runs hiring actions.
type Service struct {
	client *api.Client
	store  *store.Store
	cache  *querycache.Cache
	log    *logbook.Logbook
}

// Option customizes a Service.
type Option func(*Service)

// WithLogbook records workflow events in the journey log.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *Service) {
		s.log = lb
	}
}

// New wires a Service. A nil cache gets a private one.
func New(client *api.Client, st *store.Store, cache *querycache.Cache, opts ...Option) *Service {
	if cache == nil {
		cache = querycache.New()
	}
	s := &Service{client: client, store: st, cache: cache}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Cache exposes the query cache so the session can clear it on logout.
func (s *Service) Cache() *querycache.Cache {
	return s.cache
}

// StartWorkflow launches the pipeline and records the new session.
func (s *Service) StartWorkflow(ctx context.Context, req api.WorkflowStartRequest) (api.WorkflowResponse, error) {
	s.store.WorkflowPending()
	resp, err := s.client.StartWorkflow(ctx, req)
	if err != nil {
		s.store.WorkflowFailed(api.DetailOr(err, MsgStartFailed))
		s.log.Error("Workflow start failed: %v", err)
		return api.WorkflowResponse{}, fmt.Errorf("hiring: start workflow: %w", err)
	}
	s.store.WorkflowStarted(resp)
	s.cache.Invalidate(querycache.KeyProfiles, querycache.KeyRecentProfiles)
	s.log.Info("Workflow %s started for %s", resp.SessionID, req.CompanyName)
	return resp, nil
}

// FetchStatus requests the run's status once and applies it unless a newer
// response was already applied. It returns the server-reported status. A
// failed request leaves the workflow slice as it was; a rejected session is
// returned as a permanent poller error.
func (s *Service) FetchStatus(ctx context.Context, sessionID string) (workflow.Status, error) {
	seq := s.store.NextSequence()
	resp, err := s.client.WorkflowStatus(ctx, sessionID)
	if err != nil {
		err = fmt.Errorf("hiring: workflow status %s: %w", sessionID, err)
		if errors.Is(err, api.ErrUnauthorized) {
			return "", poller.Permanent(err)
		}
		if ctx.Err() == nil {
			s.log.Warn("Status request for %s failed, retrying: %v", sessionID, err)
		}
		return "", err
	}
	if !s.store.ApplyWorkflowStatus(seq, resp) {
		s.log.Warn("Discarded stale status response for %s", sessionID)
	}
	return workflow.NormalizeStatus(resp.Status), nil
}

// Track polls sessionID on ctl until the run settles. Hitting the attempt
// ceiling marks the run timed out. The returned handle reports why polling
// stopped; onStop, if set, runs once after the store reflects the outcome.
func (s *Service) Track(ctx context.Context, ctl *poller.Controller, sessionID string, onStop func(poller.Reason)) *poller.Handle {
	h := ctl.Start(ctx, func(ctx context.Context, attempt int) (workflow.Status, error) {
		return s.FetchStatus(ctx, sessionID)
	})
	go func() {
		reason := h.Wait()
		switch reason {
		case poller.ReasonCompleted:
			s.cache.Invalidate(querycache.KeyProfiles, querycache.KeyRecentProfiles, querycache.ProfileKey(sessionID))
			s.log.Info("Workflow %s completed after %d polls", sessionID, h.Attempts())
		case poller.ReasonFailed:
			s.log.Warn("Workflow %s failed: %s", sessionID, s.store.Workflow().Error)
		case poller.ReasonExhausted:
			s.store.WorkflowTimedOut()
			s.log.Warn("Stopped polling %s after %d attempts", sessionID, h.Attempts())
		case poller.ReasonError:
			s.log.Error("Polling %s stopped: %v", sessionID, h.Err())
		}
		if onStop != nil {
			onStop(reason)
		}
	}()
	return h
}

// RunAgent runs a single agent from the playground.
func (s *Service) RunAgent(ctx context.Context, req api.AgentRunRequest) (api.AgentRunResponse, error) {
	s.store.WorkflowPending()
	resp, err := s.client.RunAgent(ctx, req)
	if err != nil {
		s.store.WorkflowFailed(api.DetailOr(err, MsgAgentFailed))
		return api.AgentRunResponse{}, fmt.Errorf("hiring: run agent %s: %w", req.AgentType, err)
	}
	s.store.AgentRunFinished(resp)
	s.log.Info("Agent %s answered", req.AgentType)
	return resp, nil
}

// RecentProfiles feeds the dashboard.
func (s *Service) RecentProfiles(ctx context.Context) (api.ProfileList, error) {
	return s.listProfiles(ctx, querycache.KeyRecentProfiles, RecentProfilesLimit)
}

// Profiles feeds the profiles screen.
func (s *Service) Profiles(ctx context.Context) (api.ProfileList, error) {
	return s.listProfiles(ctx, querycache.KeyProfiles, ProfilesLimit)
}

func (s *Service) listProfiles(ctx context.Context, key string, limit int) (api.ProfileList, error) {
	list, err := querycache.Get(ctx, s.cache, key, func(ctx context.Context) (api.ProfileList, error) {
		return s.client.ListProfiles(ctx, limit)
	})
	if err != nil {
		return api.ProfileList{Profiles: []api.Profile{}}, fmt.Errorf("hiring: list profiles: %w", err)
	}
	return list, nil
}

// Profile loads one profile with its results.
func (s *Service) Profile(ctx context.Context, sessionID string) (api.Profile, error) {
	profile, err := querycache.Get(ctx, s.cache, querycache.ProfileKey(sessionID), func(ctx context.Context) (api.Profile, error) {
		return s.client.GetProfile(ctx, sessionID)
	})
	if err != nil {
		return api.Profile{}, fmt.Errorf("hiring: profile %s: %w", sessionID, err)
	}
	return profile, nil
}

// DeleteProfile removes a profile. Success invalidates the lists and
// notifies; failure notifies and leaves cached lists untouched.
func (s *Service) DeleteProfile(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteProfile(ctx, sessionID); err != nil {
		s.store.Notify(store.NotifyError, MsgDeleteFailed)
		s.log.Error("Deleting profile %s failed: %v", sessionID, err)
		return fmt.Errorf("hiring: delete profile %s: %w", sessionID, err)
	}
	s.cache.Invalidate(querycache.KeyProfiles, querycache.KeyRecentProfiles)
	s.cache.Remove(querycache.ProfileKey(sessionID))
	s.store.Notify(store.NotifySuccess, MsgDeleted)
	s.log.Info("Deleted profile %s", sessionID)
	return nil
}

// Health reports service health, always from the network.
func (s *Service) Health(ctx context.Context) (api.Health, error) {
	health, err := querycache.Refetch(ctx, s.cache, querycache.KeyHealth, s.client.Health)
	if err != nil {
		return api.Health{Status: "unreachable", Error: err.Error()}, fmt.Errorf("hiring: health: %w", err)
	}
	return health, nil
}
