// Package journal implements the activity journal (C9): a bounded
// per-tenant ring buffer backing fast queries, plus a durable append-only
// MongoDB sink. Grounded on internal/services/other_services.go's
// AnalyticsService (LogEvent's bson.M event documents into a Mongo
// collection, logged-not-failed on error) repurposed from a one-off
// analytics events collection into the journal's own activity_entries
// store.
package journal

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"tournamentlive/internal/models"
)

const defaultCapacity = 1000

// Notifier is invoked after an entry is appended so C5 can push an
// activity:new event. It is passed to New and may be nil, in which case
// no notification is sent.
type Notifier func(entry *models.ActivityEntry)

// Journal owns the ring buffers and the durable Mongo sink.
type Journal struct {
	mongo    *mongo.Database
	logger   *log.Logger
	notify   Notifier
	capacity int

	mu      sync.Mutex
	buffers map[int64]*ringBuffer
	nextID  int64
}

// New creates a Journal. mongo may be nil in tests that only exercise the
// ring buffer; in that case Append skips the durable write.
func New(db *mongo.Database, logger *log.Logger, notify Notifier) *Journal {
	return &Journal{
		mongo:    db,
		logger:   logger,
		notify:   notify,
		capacity: defaultCapacity,
		buffers:  make(map[int64]*ringBuffer),
	}
}

type ringBuffer struct {
	entries []*models.ActivityEntry
	cap     int
}

func (r *ringBuffer) push(e *models.ActivityEntry) {
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (s *Journal) bufferFor(tenantID int64) *ringBuffer {
	b, ok := s.buffers[tenantID]
	if !ok {
		b = &ringBuffer{cap: s.capacity}
		s.buffers[tenantID] = b
	}
	return b
}

// Append records one activity entry: assigns a monotonic id, stamps the
// timestamp, infers a category, stores it in the tenant's ring buffer,
// durably persists it to Mongo (best-effort — a Mongo failure is logged,
// not returned, matching AnalyticsService.LogEvent's "don't break the app"
// contract), and notifies C5.
func (s *Journal) Append(ctx context.Context, tenantID int64, actor, action string, details map[string]interface{}) *models.ActivityEntry {
	entry := &models.ActivityEntry{
		ID:        atomic.AddInt64(&s.nextID, 1),
		TenantID:  tenantID,
		Actor:     actor,
		Action:    action,
		Category:  models.InferCategory(action),
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.bufferFor(tenantID).push(entry)
	s.mu.Unlock()

	if s.mongo != nil {
		doc := bson.M{
			"entry_id":   entry.ID,
			"tenant_id":  entry.TenantID,
			"actor":      entry.Actor,
			"action":     entry.Action,
			"category":   entry.Category,
			"details":    entry.Details,
			"timestamp":  entry.Timestamp,
			"created_at": time.Now().UTC(),
		}
		if _, err := s.mongo.Collection("activity_entries").InsertOne(ctx, doc); err != nil {
			s.logger.Printf("journal: failed to persist activity entry %d for tenant %d: %v", entry.ID, tenantID, err)
		}
	}

	if s.notify != nil {
		s.notify(entry)
	}
	return entry
}

// QueryFilter narrows Query's result set.
type QueryFilter struct {
	Category ActivityCategory
	Search   string
}

// ActivityCategory re-exports models.ActivityCategory so callers don't
// need to import models just to build a filter.
type ActivityCategory = models.ActivityCategory

// Query searches a tenant's in-memory ring buffer (the journal's fast
// path; the durable Mongo collection exists for audit/export, not for the
// live query surface) by category and a case-insensitive substring match
// over actor/action/details, newest first, with offset/limit pagination.
func (s *Journal) Query(tenantID int64, filter QueryFilter, offset, limit int) []*models.ActivityEntry {
	s.mu.Lock()
	buf, ok := s.buffers[tenantID]
	var all []*models.ActivityEntry
	if ok {
		all = make([]*models.ActivityEntry, len(buf.entries))
		copy(all, buf.entries)
	}
	s.mu.Unlock()

	var matched []*models.ActivityEntry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !matchesSearch(e, filter.Search) {
			continue
		}
		matched = append(matched, e)
	}

	if offset >= len(matched) {
		return nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end]
}

func matchesSearch(e *models.ActivityEntry, needle string) bool {
	needle = strings.ToLower(needle)
	if strings.Contains(strings.ToLower(e.Actor), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Action), needle) {
		return true
	}
	for k, v := range e.Details {
		if strings.Contains(strings.ToLower(k), needle) {
			return true
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
