package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ft8spotter/go-spotter/internal/cty"
	"ft8spotter/go-spotter/internal/model"
	"ft8spotter/go-spotter/internal/need"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsoleLinesAndSeparator(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	ukraine := &cty.ResolvedEntity{Name: "Ukraine"}
	require.NoError(t, c.Report(context.Background(), model.Spot{Callsign: "US2YW", Entity: ukraine, Label: need.LabelNewCountry}))

	clock = clock.Add(2 * time.Second)
	require.NoError(t, c.Report(context.Background(), model.Spot{Callsign: "ZZ9ZZ", Label: need.LabelNone}))

	clock = clock.Add(15 * time.Second)
	require.NoError(t, c.Report(context.Background(), model.Spot{Callsign: "US2YW", Entity: ukraine}))

	assert.Equal(t,
		"US2YW - Ukraine [new_country]\n"+
			"ZZ9ZZ - unknown\n"+
			separator+"\n"+
			"US2YW - Ukraine\n",
		buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestConsoleWriteError(t *testing.T) {
	c := NewConsole(failingWriter{})
	assert.Error(t, c.Report(context.Background(), model.Spot{Callsign: "K1ABC"}))
}

type recordingReporter struct {
	spots []model.Spot
	err   error
}

func (r *recordingReporter) Report(_ context.Context, spot model.Spot) error {
	r.spots = append(r.spots, spot)
	return r.err
}

func TestMultiReportsToAll(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingReporter{err: boom}
	b := &recordingReporter{}

	err := Multi{a, b}.Report(context.Background(), model.Spot{Callsign: "K1ABC"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.spots, 1)
	assert.Len(t, b.spots, 1)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.retained = topic, qos, retained
	c.payload = payload.([]byte)
	return newFakeToken(c.err)
}

func TestMQTTPublisherPublishesJSON(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "", discardLogger())

	adif := 288
	spot := model.Spot{
		ID:       "abc",
		Callsign: "US2YW",
		Grid:     "KN28",
		Entity:   &cty.ResolvedEntity{Callsign: "US", ADIF: &adif, Name: "Ukraine", Source: cty.MatchPrefix},
		Band:     20,
		Mode:     "FT8",
		Need:     need.Grade{CountryBand: true},
		Label:    need.LabelNewCountryBand,
	}
	require.NoError(t, p.Report(context.Background(), spot))

	assert.Equal(t, DefaultTopic, client.topic)
	assert.Equal(t, byte(0), client.qos)
	assert.False(t, client.retained)

	var got model.Spot
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, spot, got)
}

func TestMQTTPublisherError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, "spots", discardLogger())

	err := p.Report(context.Background(), model.Spot{Callsign: "K1ABC"})
	assert.ErrorContains(t, err, "not connected")
	assert.Equal(t, "spots", client.topic)
}
