package serial

import (
	"errors"
	"fmt"
	"testing"

	bugst "go.bug.st/serial"
)

func TestModeFor(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    bugst.Mode
		wantErr error
	}{
		{
			name:   "default 8N2",
			config: DefaultConfig(),
			want:   bugst.Mode{BaudRate: 19200, DataBits: 8, StopBits: bugst.TwoStopBits, Parity: bugst.NoParity},
		},
		{
			name:   "7E1",
			config: Config{BaudRate: 9600, DataBits: 7, StopBits: 1, Parity: ParityEven},
			want:   bugst.Mode{BaudRate: 9600, DataBits: 7, StopBits: bugst.OneStopBit, Parity: bugst.EvenParity},
		},
		{
			name:   "mark parity",
			config: Config{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: ParityMark},
			want:   bugst.Mode{BaudRate: 115200, DataBits: 8, StopBits: bugst.OneStopBit, Parity: bugst.MarkParity},
		},
		{
			name:   "odd parity",
			config: Config{BaudRate: 2400, DataBits: 8, StopBits: 1, Parity: ParityOdd},
			want:   bugst.Mode{BaudRate: 2400, DataBits: 8, StopBits: bugst.OneStopBit, Parity: bugst.OddParity},
		},
		{
			name:   "space parity",
			config: Config{BaudRate: 2400, DataBits: 8, StopBits: 1, Parity: ParitySpace},
			want:   bugst.Mode{BaudRate: 2400, DataBits: 8, StopBits: bugst.OneStopBit, Parity: bugst.SpaceParity},
		},
		{
			name:    "hardware flow control",
			config:  Config{BaudRate: 9600, DataBits: 8, StopBits: 1, FlowControl: FlowControlRTSCTS},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "invalid baud",
			config:  Config{BaudRate: 7, DataBits: 8, StopBits: 1},
			wantErr: ErrInvalidBaudRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := modeFor(tt.config)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("modeFor() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("modeFor() error = %v", err)
			}
			if mode.BaudRate != tt.want.BaudRate || mode.DataBits != tt.want.DataBits ||
				mode.StopBits != tt.want.StopBits || mode.Parity != tt.want.Parity {
				t.Errorf("modeFor() = %+v, want %+v", *mode, tt.want)
			}
		})
	}
}

func TestBugstErrorKindPlainError(t *testing.T) {
	for _, err := range []error{errors.New("plain"), fmt.Errorf("wrapped: %w", errors.New("inner"))} {
		if got := bugstErrorKind(err); got != nil {
			t.Errorf("bugstErrorKind(%v) = %v, want nil", err, got)
		}
	}
}

func TestBugstOpenMissingDevice(t *testing.T) {
	_, err := BugstOpener{}.Open("/dev/ttyDOESNOTEXIST99", DefaultConfig())
	if err == nil {
		t.Fatal("Open() succeeded, want error")
	}
	var portErr *PortError
	if !errors.As(err, &portErr) || portErr.Op != "open" {
		t.Errorf("Open() error = %v, want *PortError with op open", err)
	}
}

func TestBugstOpenRejectsFlowControl(t *testing.T) {
	config := DefaultConfig()
	config.FlowControl = FlowControlRTSCTS

	_, err := BugstOpener{}.Open("/dev/ttyDOESNOTEXIST99", config)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
	}
}

func TestOpenerFor(t *testing.T) {
	for _, name := range []string{"", BackendAuto, BackendBugst} {
		if _, err := OpenerFor(name); err != nil {
			t.Errorf("OpenerFor(%q) error = %v", name, err)
		}
	}
	if o, _ := OpenerFor(BackendBugst); o != (BugstOpener{}) {
		t.Errorf("OpenerFor(bugst) = %T", o)
	}
	if _, err := OpenerFor("parallel"); err == nil {
		t.Error("OpenerFor(parallel) returned nil error")
	}
}
