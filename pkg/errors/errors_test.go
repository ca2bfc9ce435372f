// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and utility functions

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/kam-pm/kam/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "module_not_found_error",
			code:    errors.ErrModuleNotFound,
			message: "no candidate yielded an archive",
			wantStr: "[MODULE_NOT_FOUND] no candidate yielded an archive",
		},
		{
			name:    "invalid_input_error",
			code:    errors.ErrInvalidInput,
			message: "empty module id",
			wantStr: "[INVALID_INPUT] empty module id",
		},
		{
			name:    "cycle_error",
			code:    errors.ErrCycleDetected,
			message: "a -> b -> a",
			wantStr: "[CYCLE_DETECTED] a -> b -> a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}

			if err.Message != tt.message {
				t.Errorf("New() message = %q, want %q", err.Message, tt.message)
			}

			if err.Details == nil {
				t.Error("New() details should be initialized")
			}

			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := stderrors.New("permission denied")
	err := errors.Wrap(inner, errors.ErrFileAccess, "cannot read cache root")

	if err.Wrapped != inner {
		t.Errorf("Wrap() wrapped = %v, want %v", err.Wrapped, inner)
	}

	want := "[FILE_ACCESS] cannot read cache root: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestWrapNil(t *testing.T) {
	if err := errors.Wrap(nil, errors.ErrInternal, "should vanish"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := errors.Wrapf(nil, errors.ErrInternal, "should %s", "vanish"); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestIsErrorCode(t *testing.T) {
	err := errors.Newf(errors.ErrGroupNotFound, "group %q not defined", "dev")

	if !errors.IsErrorCode(err, errors.ErrGroupNotFound) {
		t.Error("IsErrorCode should match the error's own code")
	}
	if errors.IsErrorCode(err, errors.ErrCycleDetected) {
		t.Error("IsErrorCode should not match a different code")
	}
	if errors.IsErrorCode(stderrors.New("plain"), errors.ErrGroupNotFound) {
		t.Error("IsErrorCode should not match a plain error")
	}
}

func TestGetErrorCode(t *testing.T) {
	err := errors.New(errors.ErrUnsupportedFormat, "unknown archive extension")
	if got := errors.GetErrorCode(err); got != errors.ErrUnsupportedFormat {
		t.Errorf("GetErrorCode() = %v, want %v", got, errors.ErrUnsupportedFormat)
	}

	if got := errors.GetErrorCode(stderrors.New("plain")); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode(plain) = %v, want %v", got, errors.ErrUnknown)
	}
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrCycleDetected, "include cycle").
		WithDetail("path", []string{"a", "b", "a"})

	details := errors.GetErrorDetails(err)
	if details == nil {
		t.Fatal("expected details")
	}
	if _, ok := details["path"]; !ok {
		t.Error("detail 'path' should be present")
	}
}

func TestErrorsIsAcrossWrapping(t *testing.T) {
	inner := errors.New(errors.ErrModuleNotFound, "exhausted candidates")
	outer := errors.Wrap(inner, errors.ErrInternal, "sync failed")

	if !stderrors.Is(outer, errors.New(errors.ErrInternal, "")) {
		t.Error("outer should match its own code")
	}
	if !errors.IsErrorCode(outer, errors.ErrInternal) {
		t.Error("IsErrorCode should see the outermost code")
	}
}
