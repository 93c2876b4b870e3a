package service_test

import (
	"io"
	"strings"

	"oceanid/internal/port"
	"oceanid/internal/rules"
	"oceanid/mocks"
)

type fixture struct {
	docs        *mocks.MockDocumentRepo
	logs        *mocks.MockProcessingLogRepo
	repairs     *mocks.MockRowRepairRepo
	extractions *mocks.MockExtractionRepo
	training    *mocks.MockTrainingExampleRepo
	promotions  *mocks.MockPromotionRepo
	canonical   *mocks.MockCanonicalRepo
	storage     *mocks.MockSourceStorage
	locker      *mocks.MockLocker
	tx          *mocks.MockTransactor
}

func newFixture() *fixture {
	f := &fixture{
		docs:        new(mocks.MockDocumentRepo),
		logs:        new(mocks.MockProcessingLogRepo),
		repairs:     new(mocks.MockRowRepairRepo),
		extractions: new(mocks.MockExtractionRepo),
		training:    new(mocks.MockTrainingExampleRepo),
		promotions:  new(mocks.MockPromotionRepo),
		canonical:   new(mocks.MockCanonicalRepo),
		storage:     new(mocks.MockSourceStorage),
		locker:      new(mocks.MockLocker),
	}
	f.tx = &mocks.MockTransactor{Repos: f.repos()}
	return f
}

func (f *fixture) repos() port.Repos {
	return port.Repos{
		Documents:        f.docs,
		ProcessingLogs:   f.logs,
		RowRepairs:       f.repairs,
		Extractions:      f.extractions,
		TrainingExamples: f.training,
		Promotions:       f.promotions,
		Canonical:        f.canonical,
	}
}

// staticRules serves a fixed snapshot.
type staticRules struct {
	snap *rules.Snapshot
	err  error
}

func (s staticRules) Current() (*rules.Snapshot, error) { return s.snap, s.err }

func body(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func strPtr(s string) *string { return &s }
