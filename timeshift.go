package ftputil

import (
	"math"
	"time"
)

const (
	maxTimeShiftMagnitude = 24 * 60 * 60 // seconds
	timeShiftGranularity  = 15 * 60      // seconds
	probeFileName         = "ftputil-synchronize-probe"
)

// SetTimeShift sets the server-minus-UTC clock offset used to interpret
// listing timestamps (spec §4.8 "set_time_shift"). seconds must be an
// integer multiple of 15 minutes with magnitude at most 24 hours;
// otherwise it fails with ErrTimeShift. Setting it invalidates the
// entire stat cache, since every cached record's MTime was computed
// against the previous shift.
func (h *Host) SetTimeShift(seconds int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := validateTimeShift(seconds); err != nil {
		return err
	}
	h.timeShift = seconds
	h.timeShiftSet = true
	h.cache.Clear()
	return nil
}

func validateTimeShift(seconds int64) error {
	if seconds < -maxTimeShiftMagnitude || seconds > maxTimeShiftMagnitude {
		return &PermanentError{Op: "set_time_shift", Message: "time shift magnitude exceeds 24 hours", Err: ErrTimeShift}
	}
	if seconds%timeShiftGranularity != 0 {
		return &PermanentError{Op: "set_time_shift", Message: "time shift must be a multiple of 15 minutes", Err: ErrTimeShift}
	}
	return nil
}

// TimeShift returns the current time shift in seconds and whether one
// has been established (by SetTimeShift or SynchronizeTimes).
func (h *Host) TimeShift() (seconds int64, set bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timeShift, h.timeShiftSet
}

// SynchronizeTimes derives the time shift automatically (spec §4.8
// "synchronize_times"): it writes a small probe file into the current
// directory, stats it back, and sets the shift to the delta between
// the local UTC write time and the server-reported mtime, rounded to
// the active parser's mtime_precision. It fails with ErrTimeShift if
// the probe file can't be written or stat'ed.
func (h *Host) SynchronizeTimes() error {
	localWrite, err := h.writeProbeFile()
	if err != nil {
		return &PermanentError{Op: "synchronize_times", Message: err.Error(), Err: ErrTimeShift}
	}

	h.mu.Lock()
	rec, statErr := h.lstat(probeFileName)
	h.mu.Unlock()
	if statErr != nil {
		_ = h.Remove(probeFileName)
		return &PermanentError{Op: "synchronize_times", Message: "could not stat probe file", Err: ErrTimeShift}
	}
	_ = h.Remove(probeFileName)

	precision := rec.MTimePrecision
	if precision <= 0 {
		precision = 60
	}
	shift := roundToMultiple(rec.MTime.Sub(localWrite).Seconds(), float64(precision))

	h.mu.Lock()
	defer h.mu.Unlock()
	if shift < -maxTimeShiftMagnitude {
		shift = -maxTimeShiftMagnitude
	} else if shift > maxTimeShiftMagnitude {
		shift = maxTimeShiftMagnitude
	}
	h.timeShift = int64(shift)
	h.timeShiftSet = true
	h.cache.Clear()
	return nil
}

// writeProbeFile uploads a short fixed payload to probeFileName in the
// current directory, returning the local UTC instant the write
// completed.
func (h *Host) writeProbeFile() (time.Time, error) {
	f, err := h.Open(probeFileName, "wb")
	if err != nil {
		return time.Time{}, err
	}
	if _, err := f.Write([]byte("ftputil synchronization file\n")); err != nil {
		_ = f.Close()
		return time.Time{}, err
	}
	writeTime := time.Now().UTC()
	if err := f.Close(); err != nil {
		return time.Time{}, err
	}
	return writeTime, nil
}

func roundToMultiple(value, multiple float64) float64 {
	if multiple == 0 {
		return value
	}
	return multiple * math.Round(value/multiple)
}
