// Package adb talks to Android devices through the adb binary: dump
// capture, device discovery, screenshots, and input forwarding.
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// remoteDumpPath is where uiautomator writes its XML on the device
// before we read it back.
const remoteDumpPath = "/sdcard/uifuse_dump.xml"

// ErrNoViewHierarchy means dumpsys produced no "View Hierarchy:"
// section for the requested activity. The window may have changed
// between capture steps.
var ErrNoViewHierarchy = errors.New("adb: no view hierarchy for activity")

// ErrNoForegroundActivity means neither the activity manager nor the
// window manager reported a focused activity.
var ErrNoForegroundActivity = errors.New("adb: no foreground activity")

// RetryableError indicates a transient device failure worth retrying,
// such as uiautomator refusing to dump while the UI thread is busy.
type RetryableError struct {
	Op      string
	Message string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable adb failure (%s): %s", e.Op, truncate(e.Message, 200))
}

// Device is one attached device.
type Device struct {
	Serial string `json:"serial"`
	Model  string `json:"model"`
}

// Client shells out to the adb binary. Every command records its
// latency into the client's stats window.
type Client struct {
	binary  string
	timeout time.Duration
	stats   *CommandStats
}

func NewClient(binary string, timeout time.Duration) *Client {
	if binary == "" {
		binary = "adb"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		binary:  binary,
		timeout: timeout,
		stats:   NewCommandStats(time.Hour),
	}
}

// Stats returns the rolling latency aggregate over recent commands.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Version reports the adb client version line, which doubles as the
// availability check at startup.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "version")
	if err != nil {
		return "", err
	}
	if i := strings.Index(out, "\n"); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out), nil
}

// Devices lists attached devices with their product model.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.run(ctx, "devices")
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, serial := range parseDeviceList(out) {
		model, err := c.Model(ctx, serial)
		if err != nil || model == "" {
			model = serial
		}
		devices = append(devices, Device{Serial: serial, Model: model})
	}
	return devices, nil
}

// Model reports the device's product model property.
func (c *Client) Model(ctx context.Context, serial string) (string, error) {
	return c.run(ctx, deviceArgs(serial, "shell", "getprop", "ro.product.model")...)
}

// UIAutomatorDump captures the uiautomator XML for the current screen:
// dump on the device, read it back, clean up. A dump the tool refuses
// to confirm surfaces as retryable, uiautomator is routinely busy for
// a moment after UI changes.
func (c *Client) UIAutomatorDump(ctx context.Context, serial string) ([]byte, error) {
	out, err := c.run(ctx, deviceArgs(serial, "shell", "uiautomator", "dump", remoteDumpPath)...)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(strings.ToLower(out), "dumped to") {
		return nil, &RetryableError{Op: "uiautomator dump", Message: out}
	}

	data, err := c.runRaw(ctx, deviceArgs(serial, "exec-out", "cat", remoteDumpPath)...)
	if err != nil {
		return nil, err
	}

	// Best-effort cleanup of the device-side temp file.
	_, _ = c.run(ctx, deviceArgs(serial, "shell", "rm", remoteDumpPath)...)

	return data, nil
}

// ViewHierarchy captures the "View Hierarchy:" section that dumpsys
// prints for the activity's decor view. activity is the simple class
// name that appears bracketed on the DecorView line.
func (c *Client) ViewHierarchy(ctx context.Context, serial, activity string) (string, error) {
	out, err := c.run(ctx, deviceArgs(serial, "shell", "dumpsys", "activity", "top")...)
	if err != nil {
		return "", err
	}
	section, ok := extractHierarchy(out, activity)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoViewHierarchy, activity)
	}
	return section, nil
}

// CurrentActivity resolves the foreground "package/activity" component,
// trying the activity manager first and the window manager as fallback.
func (c *Client) CurrentActivity(ctx context.Context, serial string) (string, error) {
	out, err := c.run(ctx, deviceArgs(serial, "shell", "dumpsys", "activity", "activities")...)
	if err == nil {
		if full, ok := resumedActivity(out); ok {
			return full, nil
		}
	}

	out, err = c.run(ctx, deviceArgs(serial, "shell", "dumpsys", "window", "windows")...)
	if err != nil {
		return "", err
	}
	if full, ok := focusedWindow(out); ok {
		return full, nil
	}
	return "", ErrNoForegroundActivity
}

// Screenshot returns the screen as a PNG.
func (c *Client) Screenshot(ctx context.Context, serial string) ([]byte, error) {
	return c.runRaw(ctx, deviceArgs(serial, "exec-out", "screencap", "-p")...)
}

// Tap forwards a tap at absolute screen coordinates.
func (c *Client) Tap(ctx context.Context, serial string, x, y int) error {
	_, err := c.run(ctx, deviceArgs(serial, "shell", "input", "tap",
		strconv.Itoa(x), strconv.Itoa(y))...)
	return err
}

// Swipe forwards a swipe gesture. A non-positive duration falls back
// to 300ms.
func (c *Client) Swipe(ctx context.Context, serial string, x1, y1, x2, y2 int, duration time.Duration) error {
	if duration <= 0 {
		duration = 300 * time.Millisecond
	}
	_, err := c.run(ctx, deviceArgs(serial, "shell", "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.FormatInt(duration.Milliseconds(), 10))...)
	return err
}

// InputText types text into the focused field. Spaces must travel as
// %s or the device-side shell splits the argument.
func (c *Client) InputText(ctx context.Context, serial, text string) error {
	_, err := c.run(ctx, deviceArgs(serial, "shell", "input", "text", escapeInputText(text))...)
	return err
}

// PressKey sends an Android keycode.
func (c *Client) PressKey(ctx context.Context, serial string, keycode int) error {
	_, err := c.run(ctx, deviceArgs(serial, "shell", "input", "keyevent", strconv.Itoa(keycode))...)
	return err
}

// run executes one adb command and returns trimmed stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	out, err := c.runRaw(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runRaw executes one adb command and returns stdout verbatim, for
// binary payloads such as screenshots and XML dumps.
func (c *Client) runRaw(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	c.stats.Record(commandOp(args), time.Since(start).Milliseconds())

	if err != nil {
		return nil, fmt.Errorf("adb %s: %w: %s",
			strings.Join(args, " "), err, truncate(stderr.String(), 200))
	}
	return stdout.Bytes(), nil
}

// deviceArgs prefixes the serial selector when one is given.
func deviceArgs(serial string, args ...string) []string {
	if serial == "" {
		return args
	}
	return append([]string{"-s", serial}, args...)
}

// commandOp labels a command for the stats breakdown: the verb after
// any serial selector, plus the subcommand for shell and exec-out.
func commandOp(args []string) string {
	if len(args) >= 2 && args[0] == "-s" {
		args = args[2:]
	}
	if len(args) == 0 {
		return "adb"
	}
	if (args[0] == "shell" || args[0] == "exec-out") && len(args) > 1 {
		return args[0] + " " + args[1]
	}
	return args[0]
}

// parseDeviceList extracts ready serials from "adb devices" output,
// skipping the header and offline/unauthorized entries.
func parseDeviceList(out string) []string {
	var serials []string
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		if !strings.Contains(line, "\tdevice") {
			continue
		}
		serials = append(serials, strings.SplitN(line, "\t", 2)[0])
	}
	return serials
}

// extractHierarchy scans dumpsys output for the "View Hierarchy:"
// section whose DecorView line names the target activity. The section
// runs until the next "Looper" marker, or to the end of the output.
func extractHierarchy(output, activity string) (string, bool) {
	marker := "[" + activity + "]"
	searchStart := 0
	for {
		start := strings.Index(output[searchStart:], "View Hierarchy:")
		if start == -1 {
			return "", false
		}
		start += searchStart

		firstNL := strings.Index(output[start:], "\n")
		if firstNL == -1 {
			return "", false
		}
		firstNL += start

		secondLine := output[firstNL+1:]
		if nl := strings.Index(secondLine, "\n"); nl != -1 {
			secondLine = secondLine[:nl]
		}

		if strings.Contains(secondLine, "DecorView@") && strings.Contains(secondLine, marker) {
			if end := strings.Index(output[start+1:], "Looper"); end != -1 {
				return output[start : start+1+end], true
			}
			return output[start:], true
		}

		searchStart = start + 1
	}
}

var activityComponentRe = regexp.MustCompile(`([a-zA-Z0-9_.]+)/([a-zA-Z0-9_.]+)`)

// resumedActivity finds the activity manager's resumed component,
// completing relative ".Activity" names with their package.
func resumedActivity(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "mResumedActivity") && !strings.Contains(line, "mFocusedActivity") {
			continue
		}
		if m := activityComponentRe.FindStringSubmatch(line); m != nil {
			pkg, act := m[1], m[2]
			if strings.HasPrefix(act, ".") {
				act = pkg + act
			}
			return pkg + "/" + act, true
		}
	}
	return "", false
}

// focusedWindow falls back to the window manager's focus line.
func focusedWindow(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "mCurrentFocus=") && !strings.Contains(line, "mFocusedApp=") {
			continue
		}
		if m := activityComponentRe.FindStringSubmatch(line); m != nil {
			return m[1] + "/" + m[2], true
		}
	}
	return "", false
}

// SimpleActivity reduces a full "package/activity" component to the
// bare class name dumpsys brackets on DecorView lines.
func SimpleActivity(component string) string {
	if i := strings.LastIndex(component, "/"); i >= 0 {
		component = component[i+1:]
	}
	if i := strings.LastIndex(component, "."); i >= 0 {
		component = component[i+1:]
	}
	return component
}

// escapeInputText prepares text for the device-side input tool.
func escapeInputText(text string) string {
	text = strings.ReplaceAll(text, " ", "%s")
	return strings.ReplaceAll(text, `"`, `\"`)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
