package tasks

import (
	"airsense-go/msgbus"
	"airsense-go/x/timex"
)

// Telemetry topics published by the tasks. State topics are retained so late
// subscribers see the current phase immediately.
const (
	TopicState        msgbus.Topic = "air/state"
	TopicConditioning msgbus.Topic = "air/conditioning"
	TopicVOC          msgbus.Topic = "air/voc"
	TopicNOx          msgbus.Topic = "air/nox"
)

// Lifecycle states published on TopicState.
const (
	StateConditioning = "conditioning"
	StateMeasuring    = "measuring"
)

// Reading is one post-processed sample on TopicVOC / TopicNOx.
type Reading struct {
	Raw   uint16
	Index int32
	TSMs  int64
}

// Progress is one conditioning cycle report on TopicConditioning.
type Progress struct {
	Cycle int
	Total int
	OK    bool
}

func publishState(bus *msgbus.Bus, state string) {
	if bus != nil {
		bus.PublishRetained(TopicState, state)
	}
}

func publishReading(bus *msgbus.Bus, topic msgbus.Topic, raw uint16, index int32) {
	if bus != nil {
		bus.Publish(topic, Reading{Raw: raw, Index: index, TSMs: timex.NowMs()})
	}
}
