package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventgate/eventgate/internal/models"
)

// ErrDuplicateEvent is returned when an ingested event id already exists.
var ErrDuplicateEvent = errors.New("event id already exists")

// EventService manages event ingestion and read access for the ops API.
// Claiming and completion go through pkg/claim, never through this service.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

type IngestEventRequest struct {
	EventID string `json:"event_id"`
	Source  string `json:"source"`
	Payload string `json:"payload"`
}

// Ingest pre-seeds a PENDING event. When no id is supplied a UUID is
// assigned. Events may also come into existence lazily on first claim, so
// ingestion is optional for consumers that bring their own ids.
func (s *EventService) Ingest(req *IngestEventRequest) (*models.Event, error) {
	id := req.EventID
	if id == "" {
		id = uuid.NewString()
	}

	var count int64
	if err := s.db.Model(&models.Event{}).Where("event_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateEvent
	}

	ev := models.Event{
		EventID: id,
		Source:  req.Source,
		Payload: req.Payload,
		Status:  models.EventStatusPending,
	}
	if err := s.db.Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

type EventListRequest struct {
	Page      int    `form:"page" binding:"min=0"`
	PageSize  int    `form:"page_size" binding:"min=0,max=100"`
	Status    string `form:"status"`
	ClaimedBy string `form:"claimed_by"`
	Source    string `form:"source"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type EventListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []models.Event `json:"items"`
}

func (s *EventService) List(req *EventListRequest) (*EventListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var events []models.Event
	var total int64

	query := s.db.Model(&models.Event{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ClaimedBy != "" {
		query = query.Where("claimed_by = ?", req.ClaimedBy)
	}
	if req.Source != "" {
		query = query.Where("source = ?", req.Source)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("event_id LIKE ?", "%"+req.Search+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}

	return &EventListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    events,
	}, nil
}

func (s *EventService) Get(eventID string) (*models.Event, error) {
	var ev models.Event
	if err := s.db.Where("event_id = ?", eventID).Take(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventStats holds aggregate counts for the dashboard and health endpoints.
type EventStats struct {
	Total            int64      `json:"total"`
	Pending          int64      `json:"pending"`
	Claimed          int64      `json:"claimed"`
	Completed        int64      `json:"completed"`
	CompletedLast24h int64      `json:"completed_last_24h"`
	OldestPendingAt  *time.Time `json:"oldest_pending_at"`
}

func (s *EventService) GetStats() (*EventStats, error) {
	var stats EventStats

	if err := s.db.Model(&models.Event{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := map[string]*int64{
		models.EventStatusPending:   &stats.Pending,
		models.EventStatusClaimed:   &stats.Claimed,
		models.EventStatusCompleted: &stats.Completed,
	}
	for status, dst := range counts {
		if err := s.db.Model(&models.Event{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, err
		}
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.Model(&models.Event{}).
		Where("status = ? AND completed_at >= ?", models.EventStatusCompleted, cutoff).
		Count(&stats.CompletedLast24h).Error; err != nil {
		return nil, err
	}

	var oldest models.Event
	err := s.db.Where("status = ?", models.EventStatusPending).
		Order("created_at ASC").Take(&oldest).Error
	if err == nil {
		stats.OldestPendingAt = &oldest.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &stats, nil
}
