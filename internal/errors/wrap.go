package errors

import "github.com/cockroachdb/errors"

// Thin aliases over cockroachdb/errors so callers need a single import.

func New(msg string) error { return errors.New(msg) }

func Newf(format string, args ...any) error { return errors.Newf(format, args...) }

func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

func Wrapf(err error, format string, args ...any) error { return errors.Wrapf(err, format, args...) }

func Is(err, reference error) bool { return errors.Is(err, reference) }

func As(err error, target any) bool { return errors.As(err, target) }

// Join combines errors, dropping nils.
func Join(errs ...error) error { return errors.Join(errs...) }
