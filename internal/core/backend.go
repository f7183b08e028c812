package core

import (
	"context"
)

// Source is what a session loads. URL wins over HTML when both are set.
type Source struct {
	URL  string
	HTML string
}

type PrintOptions struct {
	Printer         string
	PaperWidth      int
	Silent          bool
	PrintBackground bool
	NoMargins       bool
}

// Renderer hands out one rendering session per job.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session is an isolated rendering context. Close releases it and must be
// safe to call after any failure.
type Session interface {
	Load(ctx context.Context, src Source) error
	Print(ctx context.Context, opts PrintOptions) error
	Close() error
}

type PrinterLister interface {
	ListPrinters(ctx context.Context) ([]PrinterInfo, error)
}

// Settings is the per-printer configuration the engine reads.
type Settings interface {
	PaperWidth(printer string) (int, bool)
	PrinterIP(printer string) (string, bool)
}

// Cutter sends the device cut. It never reports failure to the caller.
type Cutter interface {
	SendCut(ctx context.Context, ip string, port int)
}
