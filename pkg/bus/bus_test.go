package bus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e3sm/warehouse/pkg/bus"
	"github.com/e3sm/warehouse/pkg/bus/events"
	"github.com/e3sm/warehouse/pkg/types/id"
)

func TestEventBus(t *testing.T) {
	b := bus.New()
	rid := id.New()

	var got []events.DatasetCheckedView
	handler := func(v events.DatasetCheckedView) { got = append(got, v) }
	require.NoError(t, b.Subscribe(events.TopicDatasetChecked(rid), handler))

	b.Publish(events.TopicDatasetChecked(rid), events.DatasetCheckedView{RunID: rid, DatasetID: "a.b", Outcome: "SUCCESS"})
	b.Publish(events.TopicDatasetChecked(id.New()), events.DatasetCheckedView{DatasetID: "other.run"})

	require.Len(t, got, 1)
	require.Equal(t, "a.b", got[0].DatasetID)

	require.NoError(t, b.Unsubscribe(events.TopicDatasetChecked(rid), handler))
	b.Publish(events.TopicDatasetChecked(rid), events.DatasetCheckedView{DatasetID: "late"})
	require.Len(t, got, 1)
}

func TestNoopBus(t *testing.T) {
	var b bus.Bus = &bus.NoopBus{}
	require.NoError(t, b.Subscribe("x", func() {}))
	b.Publish("x")
}

func TestWatch(t *testing.T) {
	b := bus.New()
	rid := id.New()

	var got []events.RunEvent
	stop, err := bus.Watch(b, events.TopicRun(rid), func(e events.RunEvent) { got = append(got, e) })
	require.NoError(t, err)

	b.Publish(events.TopicRun(rid), events.RunEvent{RunID: rid, Status: events.Started, Total: 2})
	stop()
	stop()
	b.Publish(events.TopicRun(rid), events.RunEvent{RunID: rid, Status: events.Finished, Total: 2})

	require.Len(t, got, 1)
	require.Equal(t, events.Started, got[0].Status)

	_, err = bus.Watch(b, "x", "not a func")
	require.Error(t, err)
}
