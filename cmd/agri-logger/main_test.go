package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/agri-logger/internal/csvlog"
	"github.com/sweeney/agri-logger/internal/ingest"
	"github.com/sweeney/agri-logger/internal/logic"
	"github.com/sweeney/agri-logger/internal/mqtt"
	"github.com/sweeney/agri-logger/internal/status"
)

// --- loadConfig tests ---

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("agri-logger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newFlagSet(), nil, map[string]string{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BrokerURL() != "tcp://broker.emqx.io:1883" {
		t.Errorf("broker: got %q", cfg.BrokerURL())
	}
	if cfg.Topic != mqtt.DefaultTopic {
		t.Errorf("topic: got %q, want %q", cfg.Topic, mqtt.DefaultTopic)
	}
	if cfg.Files() != csvlog.DefaultFiles() {
		t.Errorf("files: got %+v", cfg.Files())
	}
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	env := map[string]string{
		"AGRI_BROKER_HOST": "env-host",
		"AGRI_TOPIC":       "env/topic",
		"AGRI_HEARTBEAT":   "1m",
	}
	args := []string{"-broker-host", "flag-host", "-broker-port", "8883", "-heartbeat", "0", "-http", ""}

	cfg, err := loadConfig(newFlagSet(), args, env)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BrokerHost != "flag-host" {
		t.Errorf("BrokerHost: got %q, want flag-host", cfg.BrokerHost)
	}
	if cfg.BrokerPort != 8883 {
		t.Errorf("BrokerPort: got %d, want 8883", cfg.BrokerPort)
	}
	if cfg.Topic != "env/topic" {
		t.Errorf("Topic: got %q, want env/topic (flag not set)", cfg.Topic)
	}
	if cfg.Heartbeat != 0 {
		t.Errorf("Heartbeat: got %v, want 0", cfg.Heartbeat)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr: got %q, want empty", cfg.HTTPAddr)
	}
}

func TestLoadConfigLogFlags(t *testing.T) {
	args := []string{"-log-dir", "/data", "-general-log", "a.csv", "-irrigation-log", "b.csv", "-manual-log", "c.csv", "-client-id", "me", "-topic", "t"}

	cfg, err := loadConfig(newFlagSet(), args, map[string]string{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := csvlog.Files{General: "a.csv", Irrigation: "b.csv", ManualMode: "c.csv"}
	if cfg.Files() != want {
		t.Errorf("files: got %+v, want %+v", cfg.Files(), want)
	}
	if cfg.LogDir != "/data" || cfg.ClientID != "me" || cfg.Topic != "t" {
		t.Errorf("got LogDir=%q ClientID=%q Topic=%q", cfg.LogDir, cfg.ClientID, cfg.Topic)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]struct {
		args []string
		env  map[string]string
	}{
		"empty topic flag":   {args: []string{"-topic", ""}},
		"port out of range":  {args: []string{"-broker-port", "70000"}},
		"negative heartbeat": {args: []string{"-heartbeat", "-1s"}},
		"unknown flag":       {args: []string{"-gpio", "17"}},
		"bad env port":       {env: map[string]string{"AGRI_BROKER_PORT": "x"}},
	}
	for desc, tc := range cases {
		env := tc.env
		if env == nil {
			env = map[string]string{}
		}
		if _, err := loadConfig(newFlagSet(), tc.args, env); err == nil {
			t.Errorf("%s: expected error", desc)
		}
	}
}

// --- runLoop tests ---

var base = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type loopEnv struct {
	sub     *mqtt.FakeSubscriber
	writer  *csvlog.FakeWriter
	tracker *status.Tracker
	handler *ingest.Handler
}

func newLoopEnv() *loopEnv {
	// Unbuffered so every Deliver returns only once runLoop has taken the message.
	sub := mqtt.NewFakeSubscriber(0)
	w := csvlog.NewFakeWriter()
	tr := status.NewTracker(base, status.Config{})
	return &loopEnv{
		sub:     sub,
		writer:  w,
		tracker: tr,
		handler: ingest.NewHandler(w, tr, nil, fakeClock(base, time.Second)),
	}
}

// runRunLoop drives runLoop with the given payloads, one heartbeat tick per
// entry in beats after the payloads, then the given signal.
func runRunLoop(t *testing.T, e *loopEnv, payloads []string, beats int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(e.sub.Messages(), e.handler, e.sub, e.tracker, tick, sig)
	}()

	for i, p := range payloads {
		e.sub.DeliverPayload(p, base.Add(time.Duration(i)*time.Second))
	}
	for i := 0; i < beats; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return after signal")
		return nil
	}
}

func TestRunLoopNoMessages(t *testing.T) {
	e := newLoopEnv()

	if err := runRunLoop(t, e, nil, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	for _, l := range csvlog.Logs {
		if rows := e.writer.Lines(l); len(rows) != 0 {
			t.Errorf("%s log: expected no rows, got %v", l, rows)
		}
	}
}

func TestRunLoopIrrigationAndManualSequence(t *testing.T) {
	e := newLoopEnv()
	payloads := []string{
		`{"temperature":20,"irrigation":false,"manual_mode":false}`,
		`{"temperature":21,"irrigation":true,"manual_mode":false}`,
		`{"temperature":22,"irrigation":true,"manual_mode":true}`,
		`{"temperature":23,"irrigation":false,"manual_mode":false}`,
	}

	if err := runRunLoop(t, e, payloads, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := len(e.writer.Lines(csvlog.General)); got != 4 {
		t.Errorf("general rows: got %d, want 4", got)
	}
	irrigation := e.writer.Lines(csvlog.Irrigation)
	want := "2026-06-01 09:30:01,21,,,,,true,false"
	if len(irrigation) != 1 || irrigation[0] != want {
		t.Errorf("irrigation log: got %v, want [%s]", irrigation, want)
	}
	manual := e.writer.Lines(csvlog.ManualMode)
	wantManual := []string{
		"2026-06-01 09:30:02,ENTERED_MANUAL",
		"2026-06-01 09:30:03,RESUMED_AUTO",
	}
	if len(manual) != len(wantManual) {
		t.Fatalf("manual log: got %v, want %v", manual, wantManual)
	}
	for i := range wantManual {
		if manual[i] != wantManual[i] {
			t.Errorf("manual[%d]: got %q, want %q", i, manual[i], wantManual[i])
		}
	}

	snap := e.tracker.Snapshot()
	if snap.Messages != 4 {
		t.Errorf("tracker messages: got %d, want 4", snap.Messages)
	}
	if snap.Irrigation != logic.FlagFalse || snap.ManualMode != logic.FlagFalse {
		t.Errorf("tracker state: irrigation=%v manual=%v", snap.Irrigation, snap.ManualMode)
	}
	wantCounts := logic.EventCounts{IrrigationOn: 1, ManualEntered: 1, ManualResumed: 1}
	if snap.Counts != wantCounts {
		t.Errorf("counts: got %+v, want %+v", snap.Counts, wantCounts)
	}
}

func TestRunLoopMalformedMessageDoesNotStop(t *testing.T) {
	e := newLoopEnv()
	payloads := []string{
		`not json`,
		`{"irrigation":"yes"}`,
		`{"irrigation":true}`,
	}

	if err := runRunLoop(t, e, payloads, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := len(e.writer.Lines(csvlog.General)); got != 1 {
		t.Errorf("general rows: got %d, want 1", got)
	}
	if got := len(e.writer.Lines(csvlog.Irrigation)); got != 1 {
		t.Errorf("irrigation rows: got %d, want 1", got)
	}
	if snap := e.tracker.Snapshot(); snap.DecodeErrors != 2 {
		t.Errorf("decode errors: got %d, want 2", snap.DecodeErrors)
	}
}

func TestRunLoopWriteErrorDoesNotStop(t *testing.T) {
	e := newLoopEnv()
	e.writer.AppendErrors[csvlog.General] = errors.New("disk full")
	payloads := []string{
		`{"irrigation":false}`,
		`{"irrigation":true}`,
	}

	if err := runRunLoop(t, e, payloads, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := len(e.writer.Lines(csvlog.Irrigation)); got != 1 {
		t.Errorf("irrigation rows: got %d, want 1", got)
	}
	snap := e.tracker.Snapshot()
	if snap.WriteErrors != 2 {
		t.Errorf("write errors: got %d, want 2", snap.WriteErrors)
	}
	if snap.Irrigation != logic.FlagTrue {
		t.Errorf("irrigation: got %v, want true", snap.Irrigation)
	}
}

func TestRunLoopHeartbeatRefreshesConnection(t *testing.T) {
	e := newLoopEnv()
	e.sub.Connected = true

	if err := runRunLoop(t, e, nil, 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if !e.tracker.Snapshot().MQTTConnected {
		t.Error("expected MQTT connected after heartbeat")
	}
}

func TestRunLoopMessageRefreshesConnection(t *testing.T) {
	e := newLoopEnv()
	e.sub.Connected = true

	if err := runRunLoop(t, e, []string{`{}`}, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if !e.tracker.Snapshot().MQTTConnected {
		t.Error("expected MQTT connected after message")
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	e := newLoopEnv()

	if err := runRunLoop(t, e, []string{`{"manual_mode":true}`}, 0, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if got := len(e.writer.Lines(csvlog.General)); got != 1 {
		t.Errorf("general rows: got %d, want 1", got)
	}
}

func TestRunLoopChannelClosed(t *testing.T) {
	e := newLoopEnv()
	sig := make(chan os.Signal)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(e.sub.Messages(), e.handler, e.sub, e.tracker, nil, sig)
	}()

	e.sub.DeliverPayload(`{"irrigation":true}`, base)
	e.sub.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return after channel closed")
	}
	if got := len(e.writer.Lines(csvlog.Irrigation)); got != 1 {
		t.Errorf("irrigation rows: got %d, want 1", got)
	}
}

func TestRunLoopNilTracker(t *testing.T) {
	sub := mqtt.NewFakeSubscriber(0)
	w := csvlog.NewFakeWriter()
	h := ingest.NewHandler(w, nil, nil, nil)
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(sub.Messages(), h, sub, nil, tick, sig)
	}()

	sub.DeliverPayload(`{"irrigation":true}`, base)
	tick <- time.Time{}
	sig <- syscall.SIGTERM

	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if got := len(w.Lines(csvlog.General)); got != 1 {
		t.Errorf("general rows: got %d, want 1", got)
	}
}
