package influxdb

import (
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

func TestObserverCommandDispatched(t *testing.T) {
	tests := []struct {
		name      string
		result    climate.DeviceResult
		wantLines int
		wantSub   []string
	}{
		{
			name: "successful setpoint also records device metric",
			result: climate.DeviceResult{
				RequestID: "req-1",
				DeviceID:  "living-thermostat",
				RoomName:  "Living Room",
				Status:    climate.StatusOK,
				Duration:  30 * time.Millisecond,
				Command:   &climate.Command{Action: climate.CommandSetTemperature, Value: 21.5, IssuedAt: testNow},
			},
			wantLines: 2,
			wantSub:   []string{"status=ok", "value=21.5", "measurement=setpoint_c"},
		},
		{
			name: "timed out setpoint records only the command",
			result: climate.DeviceResult{
				DeviceID: "office-radiator-2",
				Status:   climate.StatusTimeout,
				Command:  &climate.Command{Action: climate.CommandSetTemperature, Value: 21.0},
			},
			wantLines: 1,
			wantSub:   []string{"status=timeout"},
		},
		{
			name: "mode change",
			result: climate.DeviceResult{
				DeviceID: "office-ac",
				Status:   climate.StatusOK,
				Command:  &climate.Command{Action: climate.CommandSetMode, Value: "cool"},
			},
			wantLines: 1,
			wantSub:   []string{"action=set_mode", `mode="cool"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestClient()
			NewObserver(c).CommandDispatched(tt.result)

			if len(w.lines) != tt.wantLines {
				t.Fatalf("points = %d, want %d: %v", len(w.lines), tt.wantLines, w.lines)
			}
			all := strings.Join(w.lines, "\n")
			for _, s := range tt.wantSub {
				if !strings.Contains(all, s) {
					t.Errorf("points missing %q:\n%s", s, all)
				}
			}
		})
	}
}

func TestObserverRequestHandled(t *testing.T) {
	c, w := newTestClient()

	reply := climate.Reply{Outcome: "partial", Results: make([]climate.DeviceResult, 3)}
	NewObserver(c).RequestHandled(climate.Request{}, reply, 120*time.Millisecond)

	if len(w.lines) != 1 || !strings.HasPrefix(w.lines[0], "climate_requests,outcome=partial devices=3i,duration_ms=120 ") {
		t.Errorf("lines = %v", w.lines)
	}
}
