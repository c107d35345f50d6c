package progress

import "strings"

// Sampler suppresses repetitive progress logs while preserving signal when
// stages or percentage buckets change.
type Sampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
}

// NewSampler constructs a sampler that emits when the percent crosses bucket
// boundaries (default 5%) or when the stage changes.
func NewSampler(bucketSize float64) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether an update at percent (0-100) within stage should
// be logged.
func (s *Sampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	emit := false
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		emit = true
		s.lastBucket = -1
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}
