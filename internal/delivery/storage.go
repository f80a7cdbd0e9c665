package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketJobs     = []byte("delivery_jobs")
	bucketPending  = []byte("delivery_pending")
	bucketDeferred = []byte("delivery_deferred")
)

// Storage persists delivery jobs in the shared BoltDB database
type Storage struct {
	db *bolt.DB
}

// NewStorage creates delivery buckets in the given database
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketJobs, bucketPending, bucketDeferred} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Enqueue adds a job to the queue
func (s *Storage) Enqueue(ctx context.Context, job *Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		if err := jobs.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to store job: %w", err)
		}

		pending := tx.Bucket(bucketPending)
		indexKey := makeIndexKey(job.CreatedAt, job.ID)
		if err := pending.Put(indexKey, []byte(job.ID)); err != nil {
			return fmt.Errorf("failed to add to pending index: %w", err)
		}

		return nil
	})
}

// Dequeue claims the next job for processing, preferring deferred jobs
// whose retry time has arrived. Returns nil, nil when nothing is ready.
func (s *Storage) Dequeue(ctx context.Context) (*Job, error) {
	var job *Job

	err := s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		now := time.Now()

		// Deferred jobs that are ready for retry come first
		c := tx.Bucket(bucketDeferred).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			ts := parseTimestampFromKey(k)
			if ts.After(now) {
				break // All remaining are in the future
			}

			jobData := jobs.Get(v)
			if jobData == nil {
				c.Delete()
				continue
			}

			var j Job
			if err := json.Unmarshal(jobData, &j); err != nil {
				continue
			}

			j.Status = StatusSending
			j.UpdatedAt = now

			data, err := json.Marshal(&j)
			if err != nil {
				return err
			}
			if err := jobs.Put([]byte(j.ID), data); err != nil {
				return err
			}
			if err := c.Delete(); err != nil {
				return err
			}

			job = &j
			return nil
		}

		c = tx.Bucket(bucketPending).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			jobData := jobs.Get(v)
			if jobData == nil {
				c.Delete()
				continue
			}

			var j Job
			if err := json.Unmarshal(jobData, &j); err != nil {
				continue
			}

			j.Status = StatusSending
			j.UpdatedAt = now

			data, err := json.Marshal(&j)
			if err != nil {
				return err
			}
			if err := jobs.Put([]byte(j.ID), data); err != nil {
				return err
			}
			if err := c.Delete(); err != nil {
				return err
			}

			job = &j
			return nil
		}

		return nil
	})

	return job, err
}

// Update updates a job, re-indexing it when deferred
func (s *Storage) Update(ctx context.Context, job *Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)

		job.UpdatedAt = time.Now()

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		if err := jobs.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		if job.Status == StatusDeferred {
			deferred := tx.Bucket(bucketDeferred)
			indexKey := makeIndexKey(job.NextRetryAt, job.ID)
			if err := deferred.Put(indexKey, []byte(job.ID)); err != nil {
				return fmt.Errorf("failed to add to deferred index: %w", err)
			}
		}

		return nil
	})
}

// Recover re-enqueues jobs stuck in the sending state. A job is claimed
// out of its index bucket before delivery, so a crash mid-send would
// otherwise strand it forever.
func (s *Storage) Recover(ctx context.Context) (int, error) {
	recovered := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		pending := tx.Bucket(bucketPending)
		c := jobs.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var job Job
			if err := json.Unmarshal(v, &job); err != nil {
				continue
			}
			if job.Status != StatusSending {
				continue
			}

			job.Status = StatusPending
			job.UpdatedAt = time.Now()

			data, err := json.Marshal(&job)
			if err != nil {
				return err
			}
			if err := jobs.Put([]byte(job.ID), data); err != nil {
				return err
			}

			indexKey := makeIndexKey(job.CreatedAt, job.ID)
			if err := pending.Put(indexKey, []byte(job.ID)); err != nil {
				return fmt.Errorf("failed to add to pending index: %w", err)
			}
			recovered++
		}

		return nil
	})

	return recovered, err
}

// Get retrieves a job by ID
func (s *Storage) Get(ctx context.Context, id string) (*Job, error) {
	var job *Job

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketJobs).Get([]byte(id))
		if data == nil {
			return nil
		}

		job = &Job{}
		return json.Unmarshal(data, job)
	})

	return job, err
}

// Stats returns delivery queue statistics
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketJobs).Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var job Job
			if err := json.Unmarshal(v, &job); err != nil {
				continue
			}

			stats.Total++
			switch job.Status {
			case StatusPending:
				stats.Pending++
			case StatusSending:
				stats.Sending++
			case StatusSent:
				stats.Sent++
			case StatusFailed:
				stats.Failed++
			case StatusDeferred:
				stats.Deferred++
			}
		}

		return nil
	})

	return stats, err
}

// CleanupSent removes sent jobs older than maxAge
func (s *Storage) CleanupSent(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		c := jobs.Cursor()

		var toDelete [][]byte

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var job Job
			if err := json.Unmarshal(v, &job); err != nil {
				continue
			}

			if job.Status == StatusSent && job.UpdatedAt.Before(cutoff) {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
		}

		for _, k := range toDelete {
			if err := jobs.Delete(k); err != nil {
				return err
			}
			deleted++
		}

		return nil
	})

	return deleted, err
}

// makeIndexKey creates a sortable key from timestamp and ID
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(t.Format(time.RFC3339Nano) + ":" + id)
}

// parseTimestampFromKey extracts timestamp from index key
func parseTimestampFromKey(key []byte) time.Time {
	s := string(key)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			ts, _ := time.Parse(time.RFC3339Nano, s[:i])
			return ts
		}
	}
	return time.Time{}
}
