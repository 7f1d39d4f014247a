package adb

import (
	"errors"
	"strings"
	"testing"
)

const dumpsysTopOutput = `TASK com.example.other id=12
  View Hierarchy:
    DecorView@a1b2c3[OtherActivity]
      android.widget.LinearLayout{0af1 V.E...... ........ 0,0-1920,720}
  Looper (main, tid 2) {dead}

TASK com.example.dash id=14
  View Hierarchy:
    DecorView@d4e5f6[DashboardActivity]
      android.widget.FrameLayout{ab12cd V.E...... ........ 0,0-1920,720}
        android.widget.TextView{cd34ef V.ED..... ........ 10,10-200,60 #7f0a0012 app:id/title}
  Looper (main, tid 2) {dead}
`

func TestExtractHierarchyPicksMatchingActivity(t *testing.T) {
	section, ok := extractHierarchy(dumpsysTopOutput, "DashboardActivity")
	if !ok {
		t.Fatalf("expected a hierarchy section, got none")
	}
	if !strings.Contains(section, "[DashboardActivity]") {
		t.Fatalf("expected section for DashboardActivity, got %q", section)
	}
	if strings.Contains(section, "[OtherActivity]") {
		t.Fatalf("section leaked the wrong activity: %q", section)
	}
	if strings.Contains(section, "Looper") {
		t.Fatalf("section should stop before the Looper marker: %q", section)
	}
	if !strings.Contains(section, "app:id/title") {
		t.Fatalf("section lost view lines: %q", section)
	}
}

func TestExtractHierarchyUnknownActivity(t *testing.T) {
	if _, ok := extractHierarchy(dumpsysTopOutput, "MissingActivity"); ok {
		t.Fatalf("expected no section for unknown activity")
	}
}

func TestExtractHierarchyWithoutLooperRunsToEnd(t *testing.T) {
	output := "View Hierarchy:\n  DecorView@ff[HomeActivity]\n    android.view.View{aa V.E...... ........ 0,0-10,10}\n"
	section, ok := extractHierarchy(output, "HomeActivity")
	if !ok {
		t.Fatalf("expected a hierarchy section, got none")
	}
	if !strings.Contains(section, "android.view.View") {
		t.Fatalf("expected section to run to end of output, got %q", section)
	}
}

func TestResumedActivityCompletesRelativeName(t *testing.T) {
	out := "    mResumedActivity: ActivityRecord{af0c1f u0 com.example.dash/.DashboardActivity t14}"
	full, ok := resumedActivity(out)
	if !ok {
		t.Fatalf("expected a resumed activity")
	}
	want := "com.example.dash/com.example.dash.DashboardActivity"
	if full != want {
		t.Fatalf("expected %q, got %q", want, full)
	}
}

func TestResumedActivityKeepsAbsoluteName(t *testing.T) {
	out := "  mFocusedActivity: ActivityRecord{12ab u0 com.example.dash/com.example.dash.MainActivity t3}"
	full, ok := resumedActivity(out)
	if !ok {
		t.Fatalf("expected a focused activity")
	}
	want := "com.example.dash/com.example.dash.MainActivity"
	if full != want {
		t.Fatalf("expected %q, got %q", want, full)
	}
}

func TestResumedActivityIgnoresUnrelatedLines(t *testing.T) {
	out := "  mLastPausedActivity: ActivityRecord{99 u0 com.example.other/.GoneActivity t2}"
	if _, ok := resumedActivity(out); ok {
		t.Fatalf("expected no match from paused-activity lines")
	}
}

func TestFocusedWindowNoRelativeCompletion(t *testing.T) {
	out := "  mCurrentFocus=Window{b2c3 u0 com.foo/.Bar}"
	full, ok := focusedWindow(out)
	if !ok {
		t.Fatalf("expected a focused window")
	}
	if full != "com.foo/.Bar" {
		t.Fatalf("expected %q, got %q", "com.foo/.Bar", full)
	}
}

func TestSimpleActivity(t *testing.T) {
	cases := []struct {
		component string
		want      string
	}{
		{"com.example.dash/com.example.dash.DashboardActivity", "DashboardActivity"},
		{"com.foo/.Bar", "Bar"},
		{"BareActivity", "BareActivity"},
	}
	for _, tc := range cases {
		if got := SimpleActivity(tc.component); got != tc.want {
			t.Errorf("SimpleActivity(%q): expected %q, got %q", tc.component, tc.want, got)
		}
	}
}

func TestParseDeviceListSkipsHeaderAndOffline(t *testing.T) {
	out := "List of devices attached\nemulator-5554\tdevice\n0123456789ABCDEF\tdevice product:car model:HU_X1\ndeadbeef\tunauthorized\n\n"
	serials := parseDeviceList(out)
	if len(serials) != 2 {
		t.Fatalf("expected 2 serials, got %d (%v)", len(serials), serials)
	}
	if serials[0] != "emulator-5554" || serials[1] != "0123456789ABCDEF" {
		t.Fatalf("unexpected serials: %v", serials)
	}
}

func TestEscapeInputText(t *testing.T) {
	if got := escapeInputText("hello world"); got != "hello%sworld" {
		t.Fatalf("expected %q, got %q", "hello%sworld", got)
	}
	if got := escapeInputText(`say "hi"`); got != `say%s\"hi\"` {
		t.Fatalf("expected %q, got %q", `say%s\"hi\"`, got)
	}
}

func TestDeviceArgs(t *testing.T) {
	args := deviceArgs("", "shell", "input", "tap")
	if len(args) != 3 || args[0] != "shell" {
		t.Fatalf("expected args untouched without serial, got %v", args)
	}
	args = deviceArgs("abc123", "shell", "input", "tap")
	if len(args) != 5 || args[0] != "-s" || args[1] != "abc123" {
		t.Fatalf("expected serial selector prefix, got %v", args)
	}
}

func TestCommandOp(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"version"}, "version"},
		{[]string{"devices"}, "devices"},
		{[]string{"-s", "abc", "shell", "input", "tap", "1", "2"}, "shell input"},
		{[]string{"-s", "abc", "exec-out", "screencap", "-p"}, "exec-out screencap"},
		{[]string{"shell", "dumpsys", "activity", "top"}, "shell dumpsys"},
		{nil, "adb"},
	}
	for _, tc := range cases {
		if got := commandOp(tc.args); got != tc.want {
			t.Errorf("commandOp(%v): expected %q, got %q", tc.args, tc.want, got)
		}
	}
}

func TestRetryableErrorMessage(t *testing.T) {
	err := error(&RetryableError{Op: "uiautomator dump", Message: "ERROR: could not get idle state."})
	if !strings.Contains(err.Error(), "uiautomator dump") {
		t.Fatalf("expected op in message, got %q", err.Error())
	}

	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected errors.As to find RetryableError")
	}

	long := &RetryableError{Op: "x", Message: strings.Repeat("a", 500)}
	if len(long.Error()) > 300 {
		t.Fatalf("expected truncated message, got %d bytes", len(long.Error()))
	}
}
