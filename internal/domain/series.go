package domain

import (
	"fmt"
	"strconv"
)

const (
	// ESCInstances is the number of motor controllers tracked per log.
	ESCInstances = 4
	// BaroChannels is the number of redundant barometers tracked per log.
	BaroChannels = 2
)

// Series is a single named column paired with its own time basis.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
}

// Len returns the number of samples in the series.
func (s Series) Len() int { return len(s.Times) }

// Group bundles columns that share one time basis and one topic.
type Group struct {
	Name   string
	Topic  string
	Fields []string

	times  []float64
	values [][]float64
}

// NewGroup creates an empty group with the given columns.
func NewGroup(name, topic string, fields ...string) *Group {
	return &Group{
		Name:   name,
		Topic:  topic,
		Fields: fields,
		values: make([][]float64, len(fields)),
	}
}

// Append adds one sample: a time and exactly one value per field, in
// field order. Nothing is appended if the value count is wrong.
func (g *Group) Append(t float64, vals ...float64) error {
	if len(vals) != len(g.Fields) {
		return fmt.Errorf("group %s: got %d values for %d fields", g.Name, len(vals), len(g.Fields))
	}
	g.times = append(g.times, t)
	for i, v := range vals {
		g.values[i] = append(g.values[i], v)
	}
	return nil
}

// Len returns the number of samples appended so far.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.times)
}

// Times returns the shared time basis. The slice must not be modified.
func (g *Group) Times() []float64 { return g.times }

// Series returns the column for field as a Series view.
func (g *Group) Series(field string) (Series, bool) {
	for i, f := range g.Fields {
		if f == field {
			return Series{Name: f, Times: g.times, Values: g.values[i]}, true
		}
	}
	return Series{}, false
}

// AllSeries returns every column in field order.
func (g *Group) AllSeries() []Series {
	out := make([]Series, len(g.Fields))
	for i, f := range g.Fields {
		out[i] = Series{Name: f, Times: g.times, Values: g.values[i]}
	}
	return out
}

// DualChannel holds the two groups of a redundant sensor pair.
type DualChannel [BaroChannels]*Group

// At returns the group for channel id, or false when id is out of range.
func (d *DualChannel) At(id int) (*Group, bool) {
	if id < 0 || id >= len(d) {
		return nil, false
	}
	return d[id], true
}

// ESCBank holds one group per motor controller instance.
type ESCBank [ESCInstances]*Group

// At returns the group for instance id, or false when id is out of range.
func (b *ESCBank) At(id int) (*Group, bool) {
	if id < 0 || id >= len(b) {
		return nil, false
	}
	return b[id], true
}

// Group and topic names, also used as chart file stems.
const (
	TopicAttitude = "attitude"
	TopicRate     = "rate"
	TopicXKF4     = "xkf4"
	TopicAltitude = "altitude"
	TopicGPA      = "gpa"
	TopicVibe     = "vibe"
	TopicESC      = "esc"
	TopicBattery  = "battery"
	TopicRCIn     = "rcin"
	TopicRCOut    = "rcou"
)

// SeriesSet is every group produced for one log.
type SeriesSet struct {
	Attitude *Group
	Rate     *Group
	XKF4     *Group
	Altitude DualChannel
	GPA      *Group
	Vibe     *Group
	ESC      ESCBank
	Battery  *Group
	RCIn     *Group
	RCOut    *Group
}

// NewSeriesSet allocates an empty set with every group in place.
func NewSeriesSet() *SeriesSet {
	s := &SeriesSet{
		Attitude: NewGroup(TopicAttitude, TopicAttitude, "Roll", "Pitch", "Yaw", "DesRoll", "DesPitch", "DesYaw"),
		Rate:     NewGroup(TopicRate, TopicRate, "R", "P", "Y", "RDes", "PDes", "YDes"),
		XKF4:     NewGroup(TopicXKF4, TopicXKF4, "SV", "SP", "SH", "SM", "SVT"),
		GPA:      NewGroup(TopicGPA, TopicGPA, "HAcc", "SAcc", "VAcc"),
		Vibe:     NewGroup(TopicVibe, TopicVibe, "VibeX", "VibeY", "VibeZ", "Clip"),
		Battery:  NewGroup(TopicBattery, TopicBattery, "Volt", "Curr", "Temp"),
		RCIn:     NewGroup(TopicRCIn, TopicRCIn, "C1", "C2", "C3", "C4"),
		RCOut:    NewGroup(TopicRCOut, TopicRCOut, "C1", "C2", "C3", "C4"),
	}
	for i := range s.Altitude {
		s.Altitude[i] = NewGroup(TopicAltitude+"_"+strconv.Itoa(i), TopicAltitude, "Alt"+strconv.Itoa(i))
	}
	for i := range s.ESC {
		topic := TopicESC + "_" + strconv.Itoa(i)
		s.ESC[i] = NewGroup(topic, topic, "RPM", "RawRPM", "Voltage", "Current", "Temp")
	}
	return s
}

// All returns every group in a fixed order, populated or not.
func (s *SeriesSet) All() []*Group {
	out := []*Group{s.Attitude, s.Rate, s.XKF4}
	out = append(out, s.Altitude[:]...)
	out = append(out, s.GPA, s.Vibe)
	out = append(out, s.ESC[:]...)
	return append(out, s.Battery, s.RCIn, s.RCOut)
}

// Groups returns the populated groups in a fixed order; groups with zero
// samples are omitted.
func (s *SeriesSet) Groups() []*Group {
	var out []*Group
	for _, g := range s.All() {
		if g.Len() > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Samples returns the total number of samples across all groups.
func (s *SeriesSet) Samples() int {
	var n int
	for _, g := range s.All() {
		n += g.Len()
	}
	return n
}
