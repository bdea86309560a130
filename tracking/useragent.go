package tracking

import (
	"github.com/mileusna/useragent"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"

	unknownLabel = "Unknown"
)

// ClientInfo is what a user-agent string says about the visitor's client.
type ClientInfo struct {
	Device         string
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
}

// ParseUA never fails: unrecognised strings yield a desktop device and
// Unknown browser and OS names.
func ParseUA(s string) ClientInfo {
	info := ClientInfo{
		Device:  DeviceDesktop,
		Browser: unknownLabel,
		OS:      unknownLabel,
	}
	if s == "" {
		return info
	}

	ua := useragent.Parse(s)
	switch {
	case ua.Tablet:
		info.Device = DeviceTablet
	case ua.Mobile:
		info.Device = DeviceMobile
	}
	if ua.Name != "" {
		info.Browser = ua.Name
		info.BrowserVersion = ua.Version
	}
	if ua.OS != "" {
		info.OS = ua.OS
		info.OSVersion = ua.OSVersion
	}
	return info
}
