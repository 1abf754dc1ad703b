package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Execute(context.Context) error {
	j.runs++
	return j.err
}

func TestRegister(t *testing.T) {
	s := New(time.Second)

	require.NoError(t, s.Register(&fakeJob{name: "decay", schedule: "@daily"}))
	require.NoError(t, s.Register(&fakeJob{name: "manual"}))

	assert.Error(t, s.Register(&fakeJob{name: "decay"}), "duplicate names are rejected")
	assert.Error(t, s.Register(&fakeJob{name: "broken", schedule: "every tuesday"}))
}

func TestRunNow(t *testing.T) {
	s := New(time.Second)
	job := &fakeJob{name: "decay", err: errors.New("db down")}
	require.NoError(t, s.Register(job))

	assert.EqualError(t, s.RunNow(context.Background(), "decay"), "db down")
	assert.Equal(t, 1, job.runs)

	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartStop(t *testing.T) {
	s := New(time.Second)
	require.NoError(t, s.Register(&fakeJob{name: "decay", schedule: "@hourly"}))

	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
