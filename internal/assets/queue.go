package assets

import (
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// Queue holds raw uploads waiting for crop confirmation. Items are offered
// strictly FIFO, one at a time.
type Queue struct {
	items []models.CropQueueItem

	newID func() string
	now   func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// ConfirmResult describes the outcome of a crop confirmation.
type ConfirmResult struct {
	Asset   models.ReferenceAsset
	Drained bool
}

// Enqueue appends items to the tail. Items from one upload event are added together.
func (q *Queue) Enqueue(items ...models.CropQueueItem) {
	q.items = append(q.items, items...)
}

// Current returns the head of the queue.
func (q *Queue) Current() (models.CropQueueItem, bool) {
	if len(q.items) == 0 {
		return models.CropQueueItem{}, false
	}
	return q.items[0], true
}

// Confirm turns the head into a new reference asset using the cropped image
// and pops it. The caller adds the asset to the store.
func (q *Queue) Confirm(croppedImage string) (ConfirmResult, error) {
	head, ok := q.Current()
	if !ok {
		return ConfirmResult{}, models.ErrQueueEmpty
	}
	q.pop()

	asset := models.ReferenceAsset{
		ID:            q.newID(),
		OriginalImage: head.RawImage,
		CroppedImage:  croppedImage,
		CreatedAt:     q.now(),
		CapturedAt:    head.CapturedAt,
	}
	return ConfirmResult{Asset: asset, Drained: len(q.items) == 0}, nil
}

// Cancel drops the head without creating an asset. It reports whether the queue drained.
func (q *Queue) Cancel() (bool, error) {
	if len(q.items) == 0 {
		return false, models.ErrQueueEmpty
	}
	q.pop()
	return len(q.items) == 0, nil
}

// Items returns a copy of the pending items.
func (q *Queue) Items() []models.CropQueueItem {
	out := make([]models.CropQueueItem, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	return len(q.items)
}

func (q *Queue) Clear() {
	q.items = nil
}

func (q *Queue) pop() {
	q.items[0] = models.CropQueueItem{}
	q.items = q.items[1:]
}
