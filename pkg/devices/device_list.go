package devices

import (
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo device information
type DeviceInfo struct {
	ID      malgo.DeviceID
	Name    string
	Default bool
	Formats []malgo.DataFormat
	Error   string
}

func listDevices(ctx *malgo.AllocatedContext, kind malgo.DeviceType) ([]DeviceInfo, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}

	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s device list: %w", kindName(kind), err)
	}

	result := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		deviceInfo := DeviceInfo{
			ID:      info.ID,
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		}

		full, err := ctx.DeviceInfo(kind, info.ID, malgo.Shared)
		if err != nil {
			deviceInfo.Error = err.Error()
		} else {
			deviceInfo.Formats = full.Formats
		}

		result = append(result, deviceInfo)
	}

	return result, nil
}

// ListPlaybackDevices lists all playback devices
func ListPlaybackDevices(ctx *malgo.AllocatedContext) ([]DeviceInfo, error) {
	return listDevices(ctx, malgo.Playback)
}

// ListCaptureDevices lists all capture devices
func ListCaptureDevices(ctx *malgo.AllocatedContext) ([]DeviceInfo, error) {
	return listDevices(ctx, malgo.Capture)
}

// findDevice resolves a device by case-insensitive name or name prefix.
func findDevice(ctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) (malgo.DeviceID, error) {
	devices, err := listDevices(ctx, kind)
	if err != nil {
		return malgo.DeviceID{}, err
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	idx := matchDevice(names, name)
	if idx < 0 {
		return malgo.DeviceID{}, fmt.Errorf("%s device %q not found", kindName(kind), name)
	}
	return devices[idx].ID, nil
}

// matchDevice prefers an exact (case-insensitive) match over a prefix match.
func matchDevice(names []string, want string) int {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return -1
	}
	prefix := -1
	for i, n := range names {
		n = strings.ToLower(n)
		if n == want {
			return i
		}
		if prefix < 0 && strings.HasPrefix(n, want) {
			prefix = i
		}
	}
	return prefix
}

func kindName(kind malgo.DeviceType) string {
	switch kind {
	case malgo.Capture:
		return "capture"
	case malgo.Playback:
		return "playback"
	default:
		return "audio"
	}
}

func printDevices(w io.Writer, title string, devices []DeviceInfo) {
	fmt.Fprintf(w, "%s:\n", title)
	for i, device := range devices {
		status := "ok"
		if device.Error != "" {
			status = device.Error
		}
		marker := ""
		if device.Default {
			marker = " (default)"
		}
		fmt.Fprintf(w, "    %d: %s%s [%s], formats: %d\n", i, device.Name, marker, status, len(device.Formats))
	}
}

// PrintAllDevices writes capture and playback devices to w.
func PrintAllDevices(w io.Writer) error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	capture, err := ListCaptureDevices(ctx)
	if err != nil {
		return err
	}
	playback, err := ListPlaybackDevices(ctx)
	if err != nil {
		return err
	}
	printDevices(w, "Capture Devices", capture)
	fmt.Fprintln(w)
	printDevices(w, "Playback Devices", playback)
	return nil
}
