// Package assistant is the single entry point of the support assistant:
// it routes a question to a canned reply, the contact dialogue or the RAG pipeline.
// Canned intents win over an open contact exchange, except a greeting that carries
// a slot answer ("chào em, mình tên Minh" after the name prompt).
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/domain/intent"
	"github.com/kailas-cloud/tourassist/internal/domain/prompt"
	"github.com/kailas-cloud/tourassist/internal/logger"
	"github.com/kailas-cloud/tourassist/internal/metrics"
	"github.com/kailas-cloud/tourassist/internal/usecase/dialogue"
)

// Branch is the pipeline branch that produced a reply.
type Branch string

const (
	BranchCanned   Branch = "canned"
	BranchDialogue Branch = "dialogue"
	BranchRAG      Branch = "rag"
)

// Defaults for Config zero values.
const (
	DefaultTopK             = 3
	DefaultMaxQuestionChars = 1000
	DefaultMaxHistoryTurns  = 20
)

// Request is one question with the caller-held history, oldest turn first.
type Request struct {
	Question       string
	History        conversation.History
	ConversationID string
}

// Reply is the assistant answer with its routing decision.
type Reply struct {
	Text           string
	Intent         intent.Intent
	Branch         Branch
	State          dialogue.State
	ConversationID string
	// Sources are corpus entry IDs used as context (RAG branch only).
	Sources []string
}

// Config bounds inputs and retrieval.
type Config struct {
	TopK             int
	MaxQuestionChars int
	MaxHistoryTurns  int
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Classifier *intent.Classifier
	Dialogue   *dialogue.Dialogue
	Embedder   Embedder
	Retriever  Retriever
	Builder    *prompt.Builder
	Responder  Responder
	Handoff    HandoffSink
	Templates  Templates
	Logger     *zap.Logger
}

// Service is the assistant orchestrator. Safe for concurrent use.
type Service struct {
	classifier *intent.Classifier
	dialogue   *dialogue.Dialogue
	embedder   Embedder
	retriever  Retriever
	builder    *prompt.Builder
	responder  Responder
	handoff    HandoffSink
	tmpl       Templates
	cfg        Config
	logger     *zap.Logger
}

// New creates the orchestrator. Nil classifier, dialogue and builder get defaults.
func New(deps Deps, cfg Config) *Service {
	s := &Service{
		classifier: deps.Classifier,
		dialogue:   deps.Dialogue,
		embedder:   deps.Embedder,
		retriever:  deps.Retriever,
		builder:    deps.Builder,
		responder:  deps.Responder,
		handoff:    deps.Handoff,
		tmpl:       deps.Templates.Merge(DefaultTemplates()),
		cfg:        cfg,
		logger:     deps.Logger,
	}
	if s.classifier == nil {
		s.classifier = intent.NewClassifier(intent.DefaultTable())
	}
	if s.dialogue == nil {
		dt := dialogue.DefaultTemplates()
		dt.Openers = []string{s.tmpl.PrivateTourHandoff}
		s.dialogue = dialogue.New(dialogue.WithTemplates(dt))
	}
	if s.builder == nil {
		s.builder = prompt.NewBuilder()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.cfg.TopK <= 0 {
		s.cfg.TopK = DefaultTopK
	}
	if s.cfg.MaxQuestionChars <= 0 {
		s.cfg.MaxQuestionChars = DefaultMaxQuestionChars
	}
	if s.cfg.MaxHistoryTurns <= 0 {
		s.cfg.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	return s
}

// Answer routes one question. Only domain.ErrValidation is returned;
// provider and corpus failures become fixed replies.
func (s *Service) Answer(ctx context.Context, req Request) (Reply, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Reply{}, domain.NewValidation("question is required")
	}
	if n := utf8.RuneCountInString(question); n > s.cfg.MaxQuestionChars {
		return Reply{}, domain.NewValidation(fmt.Sprintf("question is too long: %d > %d characters", n, s.cfg.MaxQuestionChars))
	}
	if err := req.History.Validate(); err != nil {
		return Reply{}, domain.NewValidation(err.Error())
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}
	history := req.History.Tail(s.cfg.MaxHistoryTurns)

	in := s.classifier.Classify(question)
	metrics.IntentsTotal.WithLabelValues(in.String()).Inc()

	log := s.log(ctx).With(zap.String("conversation_id", convID), zap.String("intent", in.String()))
	reply := Reply{Intent: in, ConversationID: convID}

	continues := in == intent.Greeting && s.dialogue.Continues(history, question)
	if text, ok := s.tmpl.Canned(in); ok && !continues {
		reply.Text, reply.Branch = text, BranchCanned
		s.done(log, reply, "ok")
		return reply, nil
	}

	if in == intent.ContactCollection || s.dialogue.Open(history) {
		out, err := s.dialogue.Step(ctx, dialogue.Input{
			Intent:         in,
			History:        history,
			Question:       question,
			ConversationID: convID,
		})
		switch {
		case err != nil:
			log.Warn("dialogue step aborted", zap.Error(err))
			reply.Text, reply.Branch = s.tmpl.ProviderFallback, BranchDialogue
			s.done(log, reply, "aborted")
			return reply, nil
		case out.State != dialogue.Interrupted:
			reply.Branch, reply.State, reply.Text = BranchDialogue, out.State, out.Text
			outcome := "ok"
			if out.Handoff != nil {
				if err := s.submit(ctx, *out.Handoff); err != nil {
					log.Error("handoff failed", zap.Int("name_chars", utf8.RuneCountInString(out.Handoff.Name)), zap.Error(err))
					reply.Text = s.tmpl.HandoffFailed
					outcome = "handoff_failed"
				}
			}
			log.Debug("dialogue step",
				zap.Stringer("from", out.Transition.From),
				zap.Stringer("to", out.Transition.To),
			)
			s.done(log, reply, outcome)
			return reply, nil
		}
		reply.State = dialogue.Interrupted
	}

	reply.Branch = BranchRAG
	var outcome string
	reply.Text, reply.Sources, outcome = s.rag(ctx, log, question)
	s.done(log, reply, outcome)
	return reply, nil
}

// Templates returns the effective fixed replies.
func (s *Service) Templates() Templates { return s.tmpl }

// Ready reports whether the corpus can serve questions.
func (s *Service) Ready() error {
	if s.retriever == nil {
		return domain.ErrCorpusUnavailable
	}
	return s.retriever.Ready()
}

func (s *Service) rag(ctx context.Context, log *zap.Logger, question string) (string, []string, string) {
	if err := s.Ready(); err != nil {
		log.Warn("corpus unavailable", zap.Error(err))
		return s.tmpl.CorpusUnavailable, nil, "corpus_unavailable"
	}

	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		log.Error("question embedding failed", zap.Int("question_chars", utf8.RuneCountInString(question)), zap.Error(err))
		return s.tmpl.ProviderFallback, nil, "embed_failed"
	}

	results, err := s.retriever.Retrieve(ctx, emb.Embedding, s.cfg.TopK)
	if err != nil {
		if errors.Is(err, domain.ErrCorpusUnavailable) {
			return s.tmpl.CorpusUnavailable, nil, "corpus_unavailable"
		}
		log.Error("retrieval failed", zap.Error(err))
		return s.tmpl.ProviderFallback, nil, "retrieve_failed"
	}

	payload := s.builder.Build(question, results)
	text := s.responder.Generate(ctx, payload)
	if text == s.responder.Fallback() {
		return text, payload.Sources, "fallback"
	}
	return text, payload.Sources, "ok"
}

func (s *Service) submit(ctx context.Context, h conversation.Handoff) error {
	if s.handoff == nil {
		return fmt.Errorf("%w: no sink configured", domain.ErrHandoffFailed)
	}
	return s.handoff.Submit(ctx, h)
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}

func (s *Service) done(log *zap.Logger, r Reply, outcome string) {
	metrics.BranchTotal.WithLabelValues(string(r.Branch), outcome).Inc()
	log.Debug("answer routed",
		zap.String("branch", string(r.Branch)),
		zap.String("outcome", outcome),
		zap.Int("answer_chars", utf8.RuneCountInString(r.Text)),
	)
}
