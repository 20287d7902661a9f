package player

import "context"

// Status is one sample of a handle's transport state, delivered through the
// status subscription at an implementation-defined cadence (hundreds of ms).
type Status struct {
	IsLoaded      bool
	PositionMs    int64
	DurationMs    int64
	IsPlaying     bool
	DidJustFinish bool
}

// HandleOptions configures handle creation.
type HandleOptions struct {
	Autoplay bool
	Loop     bool
	Volume   float64 // 0..1
}

// Handle is one open decode/output resource bound to exactly one track's
// audio. All methods may suspend on device I/O; the authoritative state is
// the next status callback, not the return of a command.
type Handle interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	// Unload releases the decode pipeline. The handle is unusable afterwards.
	Unload(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, volume float64) error
	GetStatus(ctx context.Context) (Status, error)
	// OnStatus registers the status callback. Passing nil detaches it;
	// callers must detach before releasing the handle so no callback fires
	// against a freed resource.
	OnStatus(fn func(Status))
}

// Device creates audio handles. Exactly one implementation is active per
// process (the beep-based local output in core/audio); tests use fakes.
type Device interface {
	CreateHandle(ctx context.Context, url string, opts HandleOptions) (Handle, error)
}
