package events

import (
	"fmt"
	"time"

	"github.com/e3sm/warehouse/pkg/types/id"
)

const (
	datasetCheckedTopic = "event.dataset-checked"
	runTopic            = "event.run"
)

// TopicRunStarted carries the Started [RunEvent] of every run, so that
// listeners can learn a run's ID before any of its datasets are checked.
const TopicRunStarted = "event.run-started"

// TopicAnyDatasetChecked carries the [DatasetCheckedView] of every dataset
// of every run. EventBus handlers may not subscribe, so a listener that cannot
// know the run ID in advance subscribes here.
const TopicAnyDatasetChecked = datasetCheckedTopic

// TopicDatasetChecked carries a [DatasetCheckedView] for every dataset a run
// finishes.
func TopicDatasetChecked(rid id.RunID) string {
	return fmt.Sprintf("%s:%s", datasetCheckedTopic, rid)
}

// TopicRun carries the [RunEvent]s of a run.
func TopicRun(rid id.RunID) string {
	return fmt.Sprintf("%s:%s", runTopic, rid)
}

type DatasetCheckedView struct {
	RunID     id.RunID
	DatasetID string
	Kind      string
	Outcome   string
	Missing   int
	Err       error
	Elapsed   time.Duration
}

type RunEventType string

const (
	Started  RunEventType = "Started"
	Finished RunEventType = "Finished"
	Aborted  RunEventType = "Aborted"
)

type RunEvent struct {
	RunID  id.RunID
	Status RunEventType
	Total  int
	Error  error
}
