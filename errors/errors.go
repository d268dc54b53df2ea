// Package errors defines the structured error types used throughout copyflow.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryCapture Category = "capture"
	CategoryAdjust  Category = "adjust"
	CategoryCompose Category = "compose"
	CategoryPrint   Category = "print"
	CategoryRender  Category = "render"
	CategoryStorage Category = "storage"
	CategoryConfig  Category = "config"
)

// OperationError is the structured error type used throughout the module.
type OperationError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// New creates an OperationError.
func New(category Category, op string, err error) *OperationError {
	return &OperationError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Category == cat
	}
	return false
}

// ── Device conditions ─────────────────────────────────────────────────────────

// DeviceCode identifies a capture device condition.
type DeviceCode int

const (
	DeviceUnknown DeviceCode = iota
	DeviceNotFound
	FeedExhausted
	PaperJam
	DeviceBusy
	DeviceOffline
	InvalidSettings
	CoverOpen
	LampOff
)

var deviceCodeNames = map[DeviceCode]string{
	DeviceUnknown:   "unknown device error",
	DeviceNotFound:  "device not found",
	FeedExhausted:   "no paper in feeder",
	PaperJam:        "paper jam",
	DeviceBusy:      "device busy",
	DeviceOffline:   "device offline",
	InvalidSettings: "invalid settings",
	CoverOpen:       "cover open",
	LampOff:         "lamp off",
}

func (c DeviceCode) String() string {
	if s, ok := deviceCodeNames[c]; ok {
		return s
	}
	return deviceCodeNames[DeviceUnknown]
}

// CaptureError carries the original device condition through the pipeline.
// Raw preserves the driver-level code for the DeviceUnknown case.
type CaptureError struct {
	Code DeviceCode
	Raw  uint32
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Code == DeviceUnknown && e.Raw != 0 {
		return fmt.Sprintf("capture: error code 0x%08X", e.Raw)
	}
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Code, e.Err)
	}
	return "capture: " + e.Code.String()
}

func (e *CaptureError) Unwrap() error { return e.Err }

// NewCaptureError creates a CaptureError for the given device condition.
func NewCaptureError(code DeviceCode, err error) *CaptureError {
	return &CaptureError{Code: code, Err: err}
}

// DeviceCodeOf extracts the device condition from err, or DeviceUnknown.
func DeviceCodeOf(err error) DeviceCode {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return DeviceUnknown
}

// IsFeedExhausted reports whether err is the feeder's normal end-of-input
// signal.  It is the only device condition that does not abort a capture loop.
func IsFeedExhausted(err error) bool {
	return DeviceCodeOf(err) == FeedExhausted
}

// Sentinel errors for common failure modes.
var (
	ErrEmptyDocument       = errors.New("document has no pages")
	ErrNoPagesSelected     = errors.New("page range selects no pages")
	ErrSinkUnavailable     = errors.New("print sink unavailable")
	ErrUnsupportedPaper    = errors.New("unsupported paper size")
	ErrInvalidDimensions   = errors.New("invalid dimensions")
	ErrBusy                = errors.New("an operation is already in progress")
	ErrRendererUnavailable = errors.New("document renderer not configured")
)
