// Package rag answers questions grounded on institution data. It selects
// the context strategy, composes the prompt, calls the chat model and
// degrades gracefully when the model is out of quota.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/config"
	"campus-assistant/internal/llmservice"
	"campus-assistant/internal/models"
	"campus-assistant/internal/parser"
)

// Retriever finds the chunks most similar to a question.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.SearchResult, error)
}

// RawSource returns all tabular data as one context block.
type RawSource interface {
	FetchRaw(ctx context.Context) (string, error)
}

type Options struct {
	Strategy        models.Strategy
	TopK            int
	SystemPrompt    string
	Keywords        []string
	RefusalMessage  string
	DegradedMessage string
	FailureMessage  string
	ContextHeader   string
	QuestionHeader  string
}

// OptionsFromConfig reads the answering options from cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	strategy, err := models.ParseStrategy(cfg.Strategy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Strategy:        strategy,
		TopK:            cfg.RAG.TopK,
		SystemPrompt:    cfg.SystemPrompt(),
		Keywords:        cfg.Prompt.Keywords,
		RefusalMessage:  cfg.Prompt.RefusalMessage,
		DegradedMessage: cfg.Prompt.DegradedMessage,
		FailureMessage:  cfg.Prompt.FailureMessage,
		ContextHeader:   cfg.Prompt.ContextHeader,
		QuestionHeader:  cfg.Prompt.QuestionHeader,
	}, nil
}

type RAG struct {
	opts        Options
	chat        llmservice.Chat
	retriever   Retriever
	raw         RawSource
	instruction *parser.Instruction
}

var thinkRe = regexp.MustCompile(models.ThinkTag)

// NewRAG wires the collaborators. retriever, raw and instruction may be nil
// when the selected strategy does not need them; a nil retriever makes
// vector questions fail with ErrStoreNotInitialized.
func NewRAG(opts Options, chat llmservice.Chat, retriever Retriever, raw RawSource, instruction *parser.Instruction) (*RAG, error) {
	if chat == nil {
		return nil, errors.New("chat client is required")
	}
	applyOptionDefaults(&opts)
	if _, err := models.ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}
	if opts.Strategy == models.StrategyKeywordScan && instruction == nil {
		return nil, errors.New("keyword strategy requires an instruction file")
	}
	if opts.Strategy == models.StrategyRawConcat && raw == nil {
		return nil, errors.New("raw strategy requires a raw data source")
	}
	return &RAG{opts: opts, chat: chat, retriever: retriever, raw: raw, instruction: instruction}, nil
}

func applyOptionDefaults(o *Options) {
	if o.Strategy == "" {
		o.Strategy = models.StrategyVectorRetrieval
	}
	if o.TopK <= 0 {
		o.TopK = 4
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = models.DefaultSystemPrompt
	}
	if o.RefusalMessage == "" {
		o.RefusalMessage = models.DefaultRefusalMessage
	}
	if o.DegradedMessage == "" {
		o.DegradedMessage = models.DefaultDegradedMessage
	}
	if o.FailureMessage == "" {
		o.FailureMessage = models.DefaultFailureMessage
	}
	if o.ContextHeader == "" {
		o.ContextHeader = models.DefaultContextHeader
	}
	if o.QuestionHeader == "" {
		o.QuestionHeader = models.DefaultQuestionHeader
	}
}

func (r *RAG) Strategy() models.Strategy {
	return r.opts.Strategy
}

// Close releases the chat client. The retriever belongs to the caller.
func (r *RAG) Close() error {
	if closer, ok := r.chat.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// answer tracks one request through the state machine.
type answer struct {
	resp       *models.PromptResponse
	start      time.Time
	triedLocal bool
}

func (a *answer) visit(s models.State) {
	a.resp.State = s
	a.resp.Trace = append(a.resp.Trace, s)
}

func (a *answer) finish(s models.State, content string) *models.PromptResponse {
	a.visit(s)
	a.resp.Content = content
	a.resp.Duration = time.Since(a.start)
	return a.resp
}

// Query answers question. The returned response is always non-nil and holds
// the user-facing message; err is set only when the request ended FAILED.
func (r *RAG) Query(ctx context.Context, question string) (*models.PromptResponse, error) {
	a := &answer{
		resp:  &models.PromptResponse{Query: question, Strategy: r.opts.Strategy},
		start: time.Now(),
	}
	a.visit(models.StateAwaitingQuestion)
	a.visit(models.StateValidating)

	q := strings.TrimSpace(question)
	if q == "" {
		return a.finish(models.StateFailed, models.DefaultValidationMessage),
			fmt.Errorf("%w: question is empty", models.ErrValidation)
	}

	var (
		header     string
		contextTxt string
	)
	switch r.opts.Strategy {
	case models.StrategyVectorRetrieval:
		a.visit(models.StateRetrieving)
		if r.retriever == nil {
			return a.finish(models.StateFailed, models.DefaultNotInitialized), models.ErrStoreNotInitialized
		}
		results, err := r.retriever.Query(ctx, q, r.opts.TopK)
		if err != nil {
			if errors.Is(err, models.ErrStoreNotInitialized) {
				return a.finish(models.StateFailed, models.DefaultNotInitialized), err
			}
			if llmservice.IsQuotaError(err) {
				return r.degrade(a, q), nil
			}
			log.Error().Err(err).Msg("Retrieval failed")
			return a.finish(models.StateFailed, r.opts.FailureMessage), err
		}
		if len(results) == 0 {
			log.Info().Str("question", q).Msg("No chunk retrieved, refusing without model call")
			return a.finish(models.StateAnswered, r.opts.RefusalMessage), nil
		}
		header = r.opts.ContextHeader
		contextTxt = buildContext(results)
		a.resp.Sources = sourcesOf(results)

	case models.StrategyKeywordScan:
		if content, ok := r.localScan(a, q); ok {
			return a.finish(models.StateAnswered, content), nil
		}
		header = models.DefaultInstructionHeader
		contextTxt = r.instruction.Raw

	case models.StrategyRawConcat:
		a.visit(models.StateRetrieving)
		raw, err := r.raw.FetchRaw(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Could not load raw data")
			return a.finish(models.StateFailed, models.DefaultNoDataMessage), err
		}
		header = r.opts.ContextHeader
		contextTxt = raw
	}

	a.visit(models.StateComposingPrompt)
	prompt := r.ComposePrompt(header, contextTxt, q)

	a.visit(models.StateCallingModel)
	out, err := r.chat.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, models.ErrModelQuota) {
			return r.degrade(a, q), nil
		}
		return a.finish(models.StateFailed, r.opts.FailureMessage), err
	}

	out = strings.TrimSpace(thinkRe.ReplaceAllString(out, ""))
	if out == "" {
		return a.finish(models.StateFailed, r.opts.FailureMessage),
			fmt.Errorf("%w: empty answer", models.ErrModelCall)
	}
	return a.finish(models.StateAnswered, out), nil
}

// degrade answers from the instruction text when that was not tried yet,
// and otherwise returns the fixed unavailable message.
func (r *RAG) degrade(a *answer, q string) *models.PromptResponse {
	log.Warn().Str("question", q).Msg("Model quota exhausted, degrading")
	if !a.triedLocal && r.instruction != nil {
		if content, ok := r.localScan(a, q); ok {
			return a.finish(models.StateAnswered, content)
		}
	}
	return a.finish(models.StateDegraded, r.opts.DegradedMessage)
}

// localScan answers straight from instruction lines sharing a keyword with
// the question. The instruction's update line leads the answer in bold.
func (r *RAG) localScan(a *answer, q string) (string, bool) {
	a.visit(models.StateLocalScan)
	a.triedLocal = true

	keywords := r.opts.Keywords
	if len(keywords) == 0 {
		keywords = parser.QuestionKeywords(q)
	}
	matches := r.instruction.Match(q, keywords)

	var lines []string
	for _, m := range matches {
		if m.Text == r.instruction.Update {
			continue
		}
		lines = append(lines, m.Text)
	}
	if len(lines) == 0 {
		return "", false
	}

	a.resp.Sources = []string{"instruction"}
	body := strings.Join(lines, "\n")
	if r.instruction.Update != "" {
		return "**" + r.instruction.Update + "**" + models.ContextSeparator + body, true
	}
	return body, true
}

// ComposePrompt joins the system prompt, the grounding policy, the context
// and the question.
func (r *RAG) ComposePrompt(header, contextTxt, question string) string {
	var b strings.Builder
	b.WriteString(r.opts.SystemPrompt)
	b.WriteString(models.ContextSeparator)
	fmt.Fprintf(&b, models.GroundingPolicyTemplate, r.opts.RefusalMessage)
	b.WriteString(models.ContextSeparator)
	b.WriteString(header + ":\n" + contextTxt)
	b.WriteString(models.ContextSeparator)
	b.WriteString(r.opts.QuestionHeader + ":\n" + question)
	b.WriteString(models.ContextSeparator)
	b.WriteString(models.DefaultAnswerHeader + ":")
	return b.String()
}

func buildContext(results []models.SearchResult) string {
	blocks := make([]string, len(results))
	for i, res := range results {
		blocks[i] = fmt.Sprintf(models.SourceBlockFormat, res.Chunk.Source, res.Chunk.Content)
	}
	return strings.Join(blocks, models.ContextSeparator)
}

func sourcesOf(results []models.SearchResult) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, res := range results {
		if _, ok := seen[res.Chunk.Source]; ok {
			continue
		}
		seen[res.Chunk.Source] = struct{}{}
		sources = append(sources, res.Chunk.Source)
	}
	return sources
}
