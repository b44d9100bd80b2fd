// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/luxfi/agentnet/hostapi"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/logging"
)

// Submitter is the boundary back to the Consensus Engine. In-process
// callers pass *consensus.Engine directly (it already implements this
// method set); an out-of-process runner instead wires an HTTP client
// against the api package's /responses/{id} route.
type Submitter interface {
	SubmitResponse(ctx context.Context, requestID uint64, validator ids.NodeID, result []byte, receipt ids.ID, success bool, cost uint64) error
}

// CostQuoter computes the cost a runner reports for one execution. The
// default quoter reports whatever the Host API invocation itself
// returned; a pluggable quoter lets a deployment charge by its own
// pricing model instead (spec's Open Question on runner cost quoting).
type CostQuoter func(agentID ids.ID, payload []byte, hostCost uint64) uint64

func defaultCostQuoter(_ ids.ID, _ []byte, hostCost uint64) uint64 { return hostCost }

// RequestCreated is the subset of consensus.RequestCreatedEvent the
// runner needs; declared locally so this package does not import
// consensus (an out-of-process runner talks to the chain only through
// HTTP/events, never the engine's Go types directly).
type RequestCreated struct {
	RequestID    uint64
	AgentID      ids.ID
	Payload      []byte
	Subcommittee []ids.NodeID
	// Threshold is the number of subcommittee members (including this
	// runner) that must answer willRun=true on /quorum before this
	// runner commits to executing (spec §4.6).
	Threshold int
	// Budget bounds the peer quorum gate's total backoff time. Zero
	// means the runner falls back to defaultQuorumBudget.
	Budget time.Duration
}

// defaultQuorumBudget is the peer quorum gate's backoff ceiling when a
// RequestCreated event does not carry an explicit Budget (e.g. a test
// constructing the struct by hand).
const defaultQuorumBudget = 30 * time.Second

// Runner is one validator's off-chain execution loop.
type Runner struct {
	log       logging.Logger
	self      ids.NodeID
	host      hostapi.Client
	submitter Submitter
	prober    Prober
	peers     *PeerBook
	quoter    CostQuoter

	quorumProbeTimeout time.Duration
	maxInFlight        int64

	mu    sync.RWMutex
	tasks map[uint64]*Task

	sem *semaphore.Weighted
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithCostQuoter overrides the default host-reported cost quoter.
func WithCostQuoter(q CostQuoter) Option {
	return func(r *Runner) { r.quoter = q }
}

// WithQuorumProbeTimeout bounds how long a single peer probe may take.
func WithQuorumProbeTimeout(d time.Duration) Option {
	return func(r *Runner) { r.quorumProbeTimeout = d }
}

// New constructs a Runner. maxInFlight bounds how many requests this
// runner executes concurrently (spec §5's resource ceiling per
// runner).
func New(log logging.Logger, self ids.NodeID, host hostapi.Client, submitter Submitter, prober Prober, peers *PeerBook, maxInFlight int64, opts ...Option) *Runner {
	r := &Runner{
		log:                log,
		self:               self,
		host:               host,
		submitter:          submitter,
		prober:             prober,
		peers:              peers,
		quoter:             defaultCostQuoter,
		quorumProbeTimeout: 2 * time.Second,
		maxInFlight:        maxInFlight,
		tasks:              make(map[uint64]*Task),
		sem:                semaphore.NewWeighted(maxInFlight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleRequestCreated qualifies, probes peers, executes and submits a
// response for evt, all under the runner's concurrency gate. It
// returns promptly if this runner is not in the subcommittee.
func (r *Runner) HandleRequestCreated(ctx context.Context, evt RequestCreated) error {
	task := &Task{
		RequestID:    evt.RequestID,
		AgentID:      evt.AgentID,
		Payload:      evt.Payload,
		Subcommittee: evt.Subcommittee,
		Threshold:    evt.Threshold,
		State:        StateNew,
		CreatedAt:    time.Now(),
	}
	r.setTask(task)

	if !task.IsSubcommitteeMember(r.self) {
		r.transition(task, StateDropped, nil)
		return nil
	}
	r.transition(task, StateQualified, nil)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.transition(task, StateDropped, err)
		return err
	}
	defer r.sem.Release(1)

	budget := evt.Budget
	if budget <= 0 {
		budget = defaultQuorumBudget
	}
	if !r.awaitQuorum(ctx, task, budget) {
		r.transition(task, StateDropped, errPeerQuorumUnreachable)
		return nil
	}
	r.transition(task, StateQuorumProbed, nil)

	r.transition(task, StateExecuting, nil)
	result, cost, err := r.execute(ctx, task)
	if err != nil {
		r.transition(task, StateDropped, err)
		return err
	}

	if err := r.submitter.SubmitResponse(ctx, task.RequestID, r.self, result.Result, result.Receipt, result.Success, cost); err != nil {
		r.transition(task, StateDropped, err)
		return err
	}
	r.transition(task, StateResponded, nil)
	return nil
}

// awaitQuorum implements the peer quorum gate (spec §4.6): it probes
// every other subcommittee member for willRun intent, counts the
// willing peers including this runner itself, and retries with
// exponential backoff until that count reaches task.Threshold or
// budget (measured from task.CreatedAt) elapses. A nil prober or peers
// book disables gating entirely (single-runner deployments and tests
// that do not wire peer discovery): quorum is assumed reached
// immediately, matching a zero Threshold.
func (r *Runner) awaitQuorum(ctx context.Context, task *Task, budget time.Duration) bool {
	if r.prober == nil || r.peers == nil {
		return true
	}

	deadline := task.CreatedAt.Add(budget)
	backoff := r.quorumProbeTimeout
	for {
		if r.countWilling(ctx, task) >= task.Threshold {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}

		wait := backoff
		if remaining := time.Until(deadline); wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

// countWilling probes every other subcommittee member in parallel and
// returns how many answer willRun=true, plus this runner itself (which
// qualified and acquired its execution slot to get here, so it is
// always willing). Probe failures count as unwilling, not as missing
// information: an unreachable peer cannot be counted toward quorum.
func (r *Runner) countWilling(ctx context.Context, task *Task) int {
	probeCtx, cancel := context.WithTimeout(ctx, r.quorumProbeTimeout)
	defer cancel()

	probeReq := QuorumProbeRequest{
		RequestID: task.RequestID,
		AgentID:   task.AgentID,
		Self:      r.self,
		Payload:   task.Payload,
	}

	var g errgroup.Group
	var mu sync.Mutex
	willing := 1 // self
	for _, peer := range task.Subcommittee {
		if peer == r.self {
			continue
		}
		peer := peer
		addr, ok := r.peers.Get(peer)
		if !ok {
			continue
		}
		g.Go(func() error {
			intent, err := r.prober.Probe(probeCtx, addr, probeReq)
			if err != nil || !intent.WillRun {
				return nil
			}
			mu.Lock()
			willing++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return willing
}

func (r *Runner) execute(ctx context.Context, task *Task) (hostapi.InvokeResult, uint64, error) {
	handle, err := r.host.Load(ctx, imageURIFor(task.AgentID))
	if err != nil {
		return hostapi.InvokeResult{}, 0, err
	}
	defer func() {
		_ = r.host.Remove(context.Background(), handle)
	}()

	result, err := r.host.Invoke(ctx, handle, task.Payload)
	if err != nil {
		return hostapi.InvokeResult{}, 0, err
	}
	return result, r.quoter(task.AgentID, task.Payload, result.Cost), nil
}

// imageURIFor is a placeholder hook: a real deployment resolves
// AgentID through the same agentregistry.Registry createRequest uses
// and caches the container image URI alongside the task; this module
// does not duplicate that lookup here since the runner only needs the
// image once per task and the caller already has it available via its
// own createRequest-adjacent bookkeeping.
func imageURIFor(agentID ids.ID) string {
	return "agent://" + agentID.String()
}

func (r *Runner) setTask(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.RequestID] = t
}

func (r *Runner) transition(t *Task, s State, err error) {
	r.mu.Lock()
	t.State = s
	t.Err = err
	r.mu.Unlock()
	r.log.Debug("task transition", "requestId", t.RequestID, "state", s.String())
}

// Task returns a snapshot of the task for requestID, if known.
func (r *Runner) Task(requestID uint64) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[requestID]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// QuorumHandler serves this runner's own /quorum probe endpoint: a
// peer posts a QuorumProbeRequest and this runner answers with its
// willRun intent (spec §4.6).
func (r *Runner) QuorumHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var probe QuorumProbeRequest
		if err := json.NewDecoder(req.Body).Decode(&probe); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		intent := QuorumIntent{WillRun: r.willRun(probe.RequestID)}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(intent)
	})
}

// willRun answers a /quorum probe for requestID: this runner confirms
// willRun=true iff it independently tracks requestID as a subcommittee
// member, has not already refused it, and has spare execution
// capacity (spec §4.6).
func (r *Runner) willRun(requestID uint64) bool {
	task, ok := r.Task(requestID)
	if !ok || task.State == StateDropped {
		return false
	}
	if !task.IsSubcommitteeMember(r.self) {
		return false
	}
	if !r.sem.TryAcquire(1) {
		return false
	}
	r.sem.Release(1)
	return true
}
