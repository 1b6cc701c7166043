package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/observability"
	"github.com/triplink/triplink-backend/pkg/assistant"
	"github.com/triplink/triplink-backend/pkg/geo"
)

// TextGenerator produces a continuation for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Warm(ctx context.Context) error
}

// EntityExtractor finds named entities in a message
type EntityExtractor interface {
	Entities(ctx context.Context, text string) ([]assistant.Entity, error)
	Warm(ctx context.Context) error
}

// Locator resolves cities and measures distances
type Locator interface {
	GetLocation(ctx context.Context, city, country string) geo.Point
	Distance(a, b geo.Point) float64
}

// ChatConfig holds the ChatService settings
type ChatConfig struct {
	Country      string
	CostPerKm    float64
	ServiceFee   float64
	ReadyTimeout time.Duration // longest a request waits for warm-up
	WarmRetry    time.Duration
}

var (
	distanceKeywords = []string{"distance", "far", "how long"}
	priceKeywords    = []string{"price", "cost", "fare"}
)

const personaPrompt = `You are Chip, the TripLink ride-sharing assistant.
Answer in one short, friendly English sentence. Avoid jargon and use an emoji only now and then.

User: How do I book a seat?
Assistant: Search your route and date, then tap "Request seat" on a ride you like! 🚗

User: Can I cancel a booking?
Assistant: Sure, open My bookings and delete it; the seat goes back to the driver.

User: %s
Assistant:`

const infoPrompt = `You are Chip, the TripLink ride-sharing assistant.
Rephrase the Info line as one short, friendly English sentence for the user. Keep every number.

User: How far is A from B?
Info: The distance between A and B is approximately 3.00 km.
Assistant: A and B are only about 3 km apart, a quick hop! 🚗

User: How much is a ride from A to B?
Info: The price for A to B is around 50.00 RON.
Assistant: A ride from A to B costs around 50 RON, depending on the driver. 😊

User: %s
Info: %s
Assistant:`

type generationJob struct {
	ctx    context.Context
	prompt string
	result chan generationResult
}

type generationResult struct {
	text string
	err  error
}

// ChatService answers chat messages: route distance and price questions from
// geocoded coordinates, everything else from the text generator.
//
// Requests wait for a one-time warm-up of the generator and extractor.
// Generation runs on a single worker so at most one call is in flight.
type ChatService struct {
	generator TextGenerator
	extractor EntityExtractor
	locator   Locator
	cfg       ChatConfig
	logger    *logrus.Logger

	ready     chan struct{}
	startOnce sync.Once
	jobs      chan generationJob
}

// NewChatService creates a ChatService. generator may be nil when no model
// server is configured; messages that need it then fail as unavailable.
func NewChatService(generator TextGenerator, extractor EntityExtractor, locator Locator, cfg ChatConfig, logger *logrus.Logger) *ChatService {
	if cfg.WarmRetry <= 0 {
		cfg.WarmRetry = 2 * time.Second
	}
	return &ChatService{
		generator: generator,
		extractor: extractor,
		locator:   locator,
		cfg:       cfg,
		logger:    logger,
		ready:     make(chan struct{}),
		jobs:      make(chan generationJob),
	}
}

// Start launches the warm-up and the generation worker. Both stop when ctx
// is cancelled. Calls after the first are no-ops.
func (s *ChatService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.worker(ctx)
		go s.warm(ctx)
	})
}

// Ready is closed once warm-up has finished
func (s *ChatService) Ready() <-chan struct{} {
	return s.ready
}

// Reply answers one chat message
func (s *ChatService) Reply(ctx context.Context, message string) (*models.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewInvalidInput("message is required")
	}
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}

	intent := DetectIntent(message)
	// without entities the message is answered as if it named no city
	entities, err := s.extractor.Entities(ctx, message)
	if err != nil {
		s.logger.WithError(err).WithField("intent", intent).Warn("Entity extraction failed")
	}
	locations := assistant.Places(entities)

	reply, err := s.answer(ctx, intent, message, locations)
	if err != nil {
		observability.ChatReplies.WithLabelValues(string(intent), observability.OutcomeError).Inc()
		s.logger.WithError(err).WithField("intent", intent).Error("Chat reply failed")
		return nil, err
	}

	observability.ChatReplies.WithLabelValues(string(intent), observability.OutcomeOK).Inc()
	return &models.ChatReply{Reply: reply, Intent: intent, Locations: locations}, nil
}

func (s *ChatService) answer(ctx context.Context, intent models.Intent, message string, locations []string) (string, error) {
	switch intent {
	case models.IntentDistance, models.IntentPrice:
		if len(locations) < 2 {
			return unknownCities(locations), nil
		}
		info := s.routeInfo(ctx, intent, locations[0], locations[1])
		return s.generate(ctx, fmt.Sprintf(infoPrompt, message, info))
	default:
		return s.generate(ctx, fmt.Sprintf(personaPrompt, message))
	}
}

// routeInfo states the distance or price between two cities
func (s *ChatService) routeInfo(ctx context.Context, intent models.Intent, cityA, cityB string) string {
	distance := s.locator.Distance(
		s.locator.GetLocation(ctx, cityA, s.cfg.Country),
		s.locator.GetLocation(ctx, cityB, s.cfg.Country),
	)
	if intent == models.IntentDistance {
		return fmt.Sprintf("The distance between %s and %s is approximately %.2f km.", cityA, cityB, distance)
	}
	price := EstimateTripCost(distance, s.cfg.CostPerKm, s.cfg.ServiceFee)
	return fmt.Sprintf("The price for %s to %s is around %.2f RON.", cityA, cityB, price)
}

func unknownCities(locations []string) string {
	if len(locations) == 1 {
		return fmt.Sprintf("I don't know about that. I only recognise %s.", locations[0])
	}
	return "I don't know about that. I don't recognise these cities."
}

// generate queues prompt on the worker and returns the cleaned-up reply
func (s *ChatService) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", models.NewUnavailable("Chat assistant is not configured", nil)
	}

	start := time.Now()
	job := generationJob{ctx: ctx, prompt: prompt, result: make(chan generationResult, 1)}

	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return "", models.NewUnavailable("Chat assistant is busy", ctx.Err())
	}

	var res generationResult
	select {
	case res = <-job.result:
	case <-ctx.Done():
		return "", models.NewUnavailable("Chat assistant is busy", ctx.Err())
	}
	observability.GenerationLatency.Observe(time.Since(start).Seconds())

	if res.err != nil {
		return "", models.NewUnavailable("Chat assistant is unavailable", res.err)
	}
	return assistant.TruncateToLastSentence(res.text), nil
}

func (s *ChatService) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			if err := job.ctx.Err(); err != nil {
				job.result <- generationResult{err: err}
				continue
			}
			text, err := s.generator.Generate(job.ctx, job.prompt)
			job.result <- generationResult{text: text, err: err}
		}
	}
}

func (s *ChatService) warm(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := s.warmOnce(ctx)
		if err == nil {
			s.logger.WithField("attempts", attempt).Info("Chat assistant is ready")
			close(s.ready)
			return
		}
		s.logger.WithError(err).WithField("attempt", attempt).Warn("Chat assistant warm-up failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.WarmRetry):
		}
	}
}

func (s *ChatService) warmOnce(ctx context.Context) error {
	if s.generator != nil {
		if err := s.generator.Warm(ctx); err != nil {
			return fmt.Errorf("generator: %w", err)
		}
	}
	if err := s.extractor.Warm(ctx); err != nil {
		s.logger.WithError(err).Warn("Entity extractor is not warm, continuing without it")
	}
	return nil
}

func (s *ChatService) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}

	timer := time.NewTimer(s.cfg.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return models.NewUnavailable("Chat assistant is starting up", ctx.Err())
	case <-timer.C:
		return models.NewUnavailable("Chat assistant is starting up", errors.New("warm-up still running"))
	}
}

// DetectIntent classifies a message by keyword. Distance keywords win over
// price keywords.
func DetectIntent(message string) models.Intent {
	lower := strings.ToLower(message)
	if containsAny(lower, distanceKeywords) {
		return models.IntentDistance
	}
	if containsAny(lower, priceKeywords) {
		return models.IntentPrice
	}
	return models.IntentChat
}

// EstimateTripCost prices a trip of distanceKm, rounded to 2 decimals
func EstimateTripCost(distanceKm, costPerKm, serviceFee float64) float64 {
	return math.Round((distanceKm*costPerKm+serviceFee)*100) / 100
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
