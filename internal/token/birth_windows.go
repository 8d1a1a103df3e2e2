//go:build windows

package token

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// birthTime is the creation time in unix nanoseconds, 0 when unknown
func birthTime(path string) int64 {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0
	}
	var data windows.Win32FileAttributeData
	if err := windows.GetFileAttributesEx(p, windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data))); err != nil {
		return 0
	}
	return data.CreationTime.Nanoseconds()
}
