// Package critical provides the short interrupt-masked sections used to share
// words between interrupt handlers and the event loop.
//
// Sections are not re-entrant on host builds. Keep them short, and never
// call anything that may enter the same section while holding one.
package critical

