package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-concept-engine/internal/dto"
	"ai-concept-engine/internal/entity"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/repository/contract"
	"ai-concept-engine/pkg/concept/pipeline"
	"ai-concept-engine/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	TriggerManual   = "manual"
	TriggerAsync    = "async"
	TriggerEvent    = "event"
)

var (
	ErrConceptNotFound = errors.New("concept not found")
	ErrRunNotFound     = errors.New("run not found")
	ErrQueueDisabled   = errors.New("async runs are not configured")
)

type IConceptService interface {
	Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error)
	// RunWithId executes a run under an id handed out earlier by Enqueue.
	RunWithId(ctx context.Context, runId uuid.UUID, req *dto.RunRequest) (*dto.RunResponse, error)
	Enqueue(ctx context.Context, req *dto.RunRequest) (*dto.EnqueueRunResponse, error)
	List(ctx context.Context, query *dto.ListConceptsQuery) (*dto.ConceptListResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ConceptResponse, error)
	LatestRun(ctx context.Context) (*dto.RunReportResponse, error)
	ShowRun(ctx context.Context, id uuid.UUID) (*dto.RunReportResponse, error)
}

// TitleStore remembers note titles across runs.
type TitleStore interface {
	PutAll(titles map[string]string)
	Title(noteId string) (string, bool)
}

type conceptService struct {
	coordinator *pipeline.Coordinator
	concepts    contract.ConceptRepository
	snapshots   contract.SnapshotStore
	runs        contract.RunRepository
	titles      TitleStore
	publisher   events.Publisher
	runQueue    message.Publisher
	runTopic    string
	logger      logger.ILogger
	now         func() time.Time

	// Runs read then replace the whole concept set; one at a time.
	mu sync.Mutex
}

type ConceptServiceDeps struct {
	Coordinator *pipeline.Coordinator
	Concepts    contract.ConceptRepository
	Snapshots   contract.SnapshotStore
	Runs        contract.RunRepository
	Titles      TitleStore
	Publisher   events.Publisher
	RunQueue    message.Publisher
	RunTopic    string
	Logger      logger.ILogger
}

func NewConceptService(deps ConceptServiceDeps) IConceptService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &conceptService{
		coordinator: deps.Coordinator,
		concepts:    deps.Concepts,
		snapshots:   deps.Snapshots,
		runs:        deps.Runs,
		titles:      deps.Titles,
		publisher:   publisher,
		runQueue:    deps.RunQueue,
		runTopic:    deps.RunTopic,
		logger:      log,
		now:         time.Now,
	}
}

func (s *conceptService) Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error) {
	return s.RunWithId(ctx, uuid.New(), req)
}

func (s *conceptService) RunWithId(ctx context.Context, runId uuid.UUID, req *dto.RunRequest) (*dto.RunResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}
	report := &entity.RunReport{
		Id:        runId,
		Trigger:   trigger,
		StartedAt: s.now(),
	}

	out, err := s.execute(ctx, req)
	report.FinishedAt = s.now()
	if err != nil {
		report.Status = entity.RunStatusFailed
		report.Error = err.Error()
		s.finish(ctx, report, events.ConceptRunFailed)
		return nil, err
	}

	report.Status = entity.RunStatusSucceeded
	report.Stats = out.Stats
	s.finish(ctx, report, events.ConceptsReclustered)

	batchErrors := make([]string, len(out.BatchErrors))
	for i, e := range out.BatchErrors {
		batchErrors[i] = e.Error()
	}
	return &dto.RunResponse{
		Report:            dto.NewRunReportResponse(report),
		Concepts:          dto.NewConceptResponses(out.Concepts),
		RemovedConceptIds: out.RemovedConceptIds,
		Evolutions:        out.Evolutions,
		Misfits:           out.Misfits,
		BatchErrors:       batchErrors,
	}, nil
}

func (s *conceptService) execute(ctx context.Context, req *dto.RunRequest) (*pipeline.Output, error) {
	clusters := dto.ToClusterEntities(req.Clusters)
	s.titles.PutAll(req.Titles)

	previousClusters, err := s.snapshots.LoadClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous clusters: %w", err)
	}
	previousConcepts, err := s.concepts.FindAll(ctx, contract.ConceptFilter{})
	if err != nil {
		return nil, fmt.Errorf("load previous concepts: %w", err)
	}

	out, err := s.coordinator.Run(ctx, pipeline.Input{
		Clusters:         clusters,
		Titles:           s.titles,
		PreviousClusters: previousClusters,
		PreviousConcepts: previousConcepts,
	})
	if err != nil {
		return nil, err
	}

	if err := s.concepts.Sync(ctx, out.Concepts, out.RemovedConceptIds); err != nil {
		return nil, fmt.Errorf("persist concepts: %w", err)
	}
	if err := s.snapshots.SaveClusters(ctx, clusters); err != nil {
		// Concepts are already stored; the next run will diff against an older snapshot.
		s.logger.Error(logger.ModuleConcept, "Failed to save cluster snapshot", map[string]interface{}{
			"error": err,
		})
	}
	return out, nil
}

// finish stores the report and announces it. Neither step fails the run.
func (s *conceptService) finish(ctx context.Context, report *entity.RunReport, eventType string) {
	if err := s.runs.Save(ctx, report); err != nil {
		s.logger.Error(logger.ModuleConcept, "Failed to save run report", map[string]interface{}{
			"run_id": report.Id.String(),
			"error":  err,
		})
	}

	event := events.BaseEvent{
		Type:       eventType,
		Data:       runPayload(report),
		OccurredAt: report.FinishedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(logger.ModuleEvents, "Failed to publish run event", map[string]interface{}{
			"run_id": report.Id.String(),
			"type":   eventType,
			"error":  err,
		})
	}

	s.logger.Info(logger.ModuleConcept, "Concept run finished", map[string]interface{}{
		"run_id":         report.Id.String(),
		"status":         string(report.Status),
		"trigger":        report.Trigger,
		"total_concepts": report.Stats.TotalConcepts,
		"failed_batches": report.Stats.FailedBatches,
		"cost_usd":       report.Stats.EstimatedCostUSD,
	})
}

func runPayload(report *entity.RunReport) map[string]interface{} {
	payload := map[string]interface{}{}
	raw, err := json.Marshal(dto.NewRunReportResponse(report))
	if err == nil {
		_ = json.Unmarshal(raw, &payload)
	}
	return payload
}

func (s *conceptService) Enqueue(ctx context.Context, req *dto.RunRequest) (*dto.EnqueueRunResponse, error) {
	if s.runQueue == nil || s.runTopic == "" {
		return nil, ErrQueueDisabled
	}

	queued := *req
	if queued.Trigger == "" {
		queued.Trigger = TriggerAsync
	}
	msg := dto.RunMessage{RunId: uuid.New(), Request: queued}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	report := &entity.RunReport{
		Id:        msg.RunId,
		Trigger:   queued.Trigger,
		Status:    entity.RunStatusQueued,
		StartedAt: s.now(),
	}
	if err := s.runs.Save(ctx, report); err != nil {
		return nil, err
	}

	if err := s.runQueue.Publish(s.runTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return nil, fmt.Errorf("enqueue run: %w", err)
	}
	return &dto.EnqueueRunResponse{RunId: msg.RunId, Status: entity.RunStatusQueued}, nil
}

func (s *conceptService) List(ctx context.Context, query *dto.ListConceptsQuery) (*dto.ConceptListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filter := contract.ConceptFilter{
		Quizzable: query.Quizzable,
		ClusterId: query.ClusterId,
		Search:    query.Search,
	}
	total, err := s.concepts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	concepts, err := s.concepts.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ConceptListResponse{
		Items:    dto.NewConceptResponses(concepts),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *conceptService) Show(ctx context.Context, id uuid.UUID) (*dto.ConceptResponse, error) {
	concept, err := s.concepts.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, ErrConceptNotFound
	}
	return dto.NewConceptResponse(concept), nil
}

func (s *conceptService) LatestRun(ctx context.Context) (*dto.RunReportResponse, error) {
	report, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrRunNotFound
	}
	return dto.NewRunReportResponse(report), nil
}

func (s *conceptService) ShowRun(ctx context.Context, id uuid.UUID) (*dto.RunReportResponse, error) {
	report, err := s.runs.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrRunNotFound
	}
	return dto.NewRunReportResponse(report), nil
}
