package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/latestcomment/educhat/internal/config"
	"github.com/latestcomment/educhat/internal/metrics"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyQuestion   = errors.New("please type a question")
	ErrUnknownModel    = errors.New("model is not offered")
	ErrNoPendingVote   = errors.New("no answers are waiting for a vote")
	ErrInvalidChoice   = errors.New("choice must be one of the models queried for this question")
	ErrSessionNotFound = errors.New("session not found")
)

// SaveWarning is shown to the user when a turn could not be written to disk.
const SaveWarning = "Could not save chat history to file (admins see details)."

// TurnClassifier labels a question with its cognitive level.
type TurnClassifier interface {
	Classify(text string) string
}

// Observer receives progress while a question is processed. Callbacks run
// on the submitting goroutine, one at a time.
type Observer struct {
	OnClassified func(level string)
	OnAnswer     func(model string, res Result)
}

// ModelResult pairs a queried model with what it returned.
type ModelResult struct {
	Model string     `json:"model"`
	Kind  ResultKind `json:"kind"`
	Text  string     `json:"text"`
}

// SubmitOutcome describes a processed question. When AwaitingVote is set the
// turn is held on the session until Vote; otherwise it was appended and Saved
// reports whether the session file was written. Warnings carries save
// failures of an earlier unvoted turn that this submission finalized.
type SubmitOutcome struct {
	Turn         models.Turn   `json:"turn"`
	Results      []ModelResult `json:"results"`
	AwaitingVote bool          `json:"awaitingVote"`
	Saved        bool          `json:"saved"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// SessionManager runs the question lifecycle for every live session:
// classify, query each selected model, wait for the best-answer vote,
// append and persist.
type SessionManager struct {
	classifier TurnClassifier
	gateway    Querier
	store      SessionStore
	offered    []string
	parallel   bool
	ttl        time.Duration
	now        func() time.Time

	mu           sync.Mutex
	sessions     map[string]*models.Session
	defaultModel string
}

func NewSessionManager(classifier TurnClassifier, gateway Querier, store SessionStore, cfg *config.Config) *SessionManager {
	offered := make([]string, len(cfg.Models))
	copy(offered, cfg.Models)
	return &SessionManager{
		classifier:   classifier,
		gateway:      gateway,
		store:        store,
		offered:      offered,
		parallel:     cfg.Gateway.Parallel,
		ttl:          cfg.SessionTTL,
		now:          time.Now,
		sessions:     make(map[string]*models.Session),
		defaultModel: cfg.DefaultModel,
	}
}

func (m *SessionManager) register(sess *models.Session) {
	sess.LastSeen = m.now()
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

// Create starts an empty session with a fresh identifier.
func (m *SessionManager) Create() *models.Session {
	sess := models.NewSession()
	m.register(sess)
	log.Info().Str("session_id", sess.ID).Msg("session created")
	return sess
}

// Open returns the live session for id, resuming it from the store when it
// is not in memory. A corrupt session file does not fail the call: the
// session resumes empty and the reason is kept for the admin view.
func (m *SessionManager) Open(id string) (*models.Session, error) {
	if !ValidSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	for {
		m.mu.Lock()
		sess, ok := m.sessions[id]
		m.mu.Unlock()
		if !ok {
			break
		}
		sess.Mu.Lock()
		closed := sess.Closed
		if !closed {
			sess.LastSeen = m.now()
		}
		sess.Mu.Unlock()
		if !closed {
			return sess, nil
		}
		// Evicted between the lookup and the lock; it is gone from the map now.
	}

	if !m.store.Exists(id) {
		return nil, ErrSessionNotFound
	}
	var sess *models.Session
	turns, err := m.store.Load(id)
	switch {
	case err == nil:
		sess = models.NewSessionWithID(id, turns)
	case errors.Is(err, ErrCorruptSession):
		log.Error().Err(err).Str("session_id", id).Msg("resuming session without history")
		sess = models.NewSessionWithID(id, nil)
		sess.LastLoadError = err.Error()
	default:
		return nil, err
	}

	sess.LastSeen = m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have resumed the same id meanwhile.
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	log.Info().Str("session_id", id).Int("turns", len(sess.History)).Msg("session resumed")
	return sess, nil
}

// Reset ends sess and starts a fresh one. The old session file stays on
// disk; a turn still waiting for a vote is recorded with the default choice
// first. saved is false when that turn could not be written.
func (m *SessionManager) Reset(sess *models.Session) (fresh *models.Session, saved bool) {
	sess.Mu.Lock()
	saved = true
	if sess.Pending != nil {
		saved = m.finalizeDefault(sess)
	}
	m.evict(sess)
	sess.Mu.Unlock()
	return m.Create(), saved
}

// Release is called when a client disconnects. The session is dropped from
// memory when everything it holds is already on disk; a session with an
// unvoted turn or no file yet stays until Sweep expires it. Reports whether
// the session was dropped.
func (m *SessionManager) Release(sess *models.Session) bool {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	if sess.Closed {
		return true
	}
	if sess.Pending != nil || !m.store.Exists(sess.ID) {
		return false
	}
	m.evict(sess)
	log.Debug().Str("session_id", sess.ID).Msg("session released")
	return true
}

// Sweep drops every session untouched for longer than the configured TTL.
// Unvoted turns are recorded with their default choice first. Returns the
// number of sessions dropped.
func (m *SessionManager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	live := make([]*models.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		live = append(live, sess)
	}
	m.mu.Unlock()

	dropped := 0
	for _, sess := range live {
		sess.Mu.Lock()
		if !sess.Closed && sess.LastSeen.Before(cutoff) {
			if sess.Pending != nil {
				m.finalizeDefault(sess)
			}
			m.evict(sess)
			dropped++
		}
		sess.Mu.Unlock()
	}
	if dropped > 0 {
		log.Info().Int("dropped", dropped).Int("live", m.LiveSessions()).Msg("idle sessions expired")
	}
	return dropped
}

// RunSweeper calls Sweep every half TTL until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context) error {
	if m.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// evict marks sess closed and removes it from memory. Caller holds sess.Mu.
func (m *SessionManager) evict(sess *models.Session) {
	sess.Closed = true
	m.mu.Lock()
	if m.sessions[sess.ID] == sess {
		delete(m.sessions, sess.ID)
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

// LiveSessions is the number of sessions held in memory.
func (m *SessionManager) LiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) OfferedModels() []string {
	out := make([]string, len(m.offered))
	copy(out, m.offered)
	return out
}

func (m *SessionManager) DefaultModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultModel
}

// SetDefaultModel changes the model used when a question arrives without a
// model selection.
func (m *SessionManager) SetDefaultModel(model string) error {
	if !slices.Contains(m.offered, model) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	m.mu.Lock()
	m.defaultModel = model
	m.mu.Unlock()
	log.Info().Str("model", model).Msg("default model changed")
	return nil
}

// StoredSessions lists every session id with a file in the store.
func (m *SessionManager) StoredSessions() ([]string, error) {
	return m.store.List()
}

// resolveModels applies the default for a nil selection, drops duplicates
// and rejects models that are not offered.
func (m *SessionManager) resolveModels(selection []string) ([]string, error) {
	if selection == nil {
		return []string{m.DefaultModel()}, nil
	}
	out := make([]string, 0, len(selection))
	for _, model := range selection {
		if !slices.Contains(m.offered, model) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
		}
		if !slices.Contains(out, model) {
			out = append(out, model)
		}
	}
	return out, nil
}

// Submit processes one question for sess. The question is classified before
// any model is queried. Model failures become that model's answer text and
// never stop the others. A nil selection means the default model; an empty
// one means no model is queried and the turn is recorded straight away.
func (m *SessionManager) Submit(ctx context.Context, sess *models.Session, question string, selection []string, obs *Observer) (*SubmitOutcome, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	selected, err := m.resolveModels(selection)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = &Observer{}
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	defer func() { sess.LastSeen = m.now() }()

	var warnings []string
	if sess.Pending != nil && !m.finalizeDefault(sess) {
		warnings = append(warnings, SaveWarning)
	}

	sess.State = models.StateAwaitingResponses
	level := m.classifier.Classify(question)
	if obs.OnClassified != nil {
		obs.OnClassified(level)
	}

	results := m.queryAll(ctx, question, selected, obs)

	sess.State = models.StatePresenting
	answers := models.NewAnswers()
	for _, r := range results {
		answers.Set(r.Model, r.Text)
	}
	turn := models.Turn{
		Question:       question,
		CognitiveLevel: level,
		Answers:        answers,
	}

	out := &SubmitOutcome{Results: results, Warnings: warnings}
	if len(selected) == 0 {
		out.Saved = m.persist(sess, &turn)
		out.Turn = turn
		return out, nil
	}

	sess.Pending = &turn
	sess.State = models.StateAwaitingVote
	out.Turn = turn
	out.AwaitingVote = true
	return out, nil
}

func (m *SessionManager) queryAll(ctx context.Context, question string, selected []string, obs *Observer) []ModelResult {
	results := make([]ModelResult, len(selected))
	if !m.parallel || len(selected) < 2 {
		for i, model := range selected {
			res := m.gateway.Query(ctx, question, model)
			results[i] = ModelResult{Model: model, Kind: res.Kind, Text: res.Text}
			if obs.OnAnswer != nil {
				obs.OnAnswer(model, res)
			}
		}
		return results
	}

	var g errgroup.Group
	for i, model := range selected {
		g.Go(func() error {
			res := m.gateway.Query(ctx, question, model)
			results[i] = ModelResult{Model: model, Kind: res.Kind, Text: res.Text}
			return nil
		})
	}
	_ = g.Wait()
	if obs.OnAnswer != nil {
		for _, r := range results {
			obs.OnAnswer(r.Model, Result{Kind: r.Kind, Text: r.Text})
		}
	}
	return results
}

// Vote records model as the best answer of the pending turn, then appends
// and persists the turn. The returned bool reports whether the save worked.
func (m *SessionManager) Vote(sess *models.Session, model string) (models.Turn, bool, error) {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	sess.LastSeen = m.now()

	if sess.Pending == nil {
		return models.Turn{}, false, ErrNoPendingVote
	}
	if _, ok := sess.Pending.Answers.Get(model); !ok {
		return models.Turn{}, false, fmt.Errorf("%w: %s", ErrInvalidChoice, model)
	}

	turn := sess.Pending
	m.choose(sess, turn, model)
	saved := m.persist(sess, turn)
	return *turn, saved, nil
}

// finalizeDefault records the pending turn with its first model as the
// choice and reports whether it was saved. Caller holds sess.Mu.
func (m *SessionManager) finalizeDefault(sess *models.Session) bool {
	turn := sess.Pending
	if first := turn.Answers.Oldest(); first != nil {
		m.choose(sess, turn, first.Key)
	}
	return m.persist(sess, turn)
}

func (m *SessionManager) choose(sess *models.Session, turn *models.Turn, model string) {
	best := model
	turn.SelectedBest = &best
	sess.Votes[turn.Question] = model
}

// persist appends turn to the history and rewrites the session file. A
// failed save keeps the turn in memory. Caller holds sess.Mu.
func (m *SessionManager) persist(sess *models.Session, turn *models.Turn) bool {
	turn.Timestamp = m.now().UTC().Format(time.RFC3339)
	sess.History = append(sess.History, *turn)
	sess.Pending = nil
	sess.State = models.StatePersisted
	metrics.TurnsPersisted.Inc()

	saved := m.store.Save(sess.ID, sess.History)
	if !saved {
		sess.LastSaveError = m.store.LastError()
		log.Warn().Str("session_id", sess.ID).Msg("could not save chat history")
	}
	sess.State = models.StateIdle
	return saved
}

// AdminView is the diagnostic data shown to an authenticated admin.
type AdminView struct {
	SessionID      string   `json:"sessionId"`
	LastSaveError  string   `json:"lastSaveError,omitempty"`
	LastLoadError  string   `json:"lastLoadError,omitempty"`
	DefaultModel   string   `json:"defaultModel"`
	OfferedModels  []string `json:"offeredModels"`
	StoredSessions []string `json:"storedSessions"`
	LiveSessions   int      `json:"liveSessions"`
}

func (m *SessionManager) AdminView(sess *models.Session) (AdminView, error) {
	stored, err := m.store.List()
	if err != nil {
		return AdminView{}, err
	}
	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	return AdminView{
		SessionID:      sess.ID,
		LastSaveError:  sess.LastSaveError,
		LastLoadError:  sess.LastLoadError,
		DefaultModel:   m.DefaultModel(),
		OfferedModels:  m.OfferedModels(),
		StoredSessions: stored,
		LiveSessions:   m.LiveSessions(),
	}, nil
}
