package handler

import (
	"errors"
	"strings"
	"testing"

	"github.com/hotelops/console/internal/core/domain"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name string
		in   any
		want string
	}{
		{"required", &guardRequest{}, "path is required"},
		{"startswith", &guardRequest{Path: "rooms"}, `path must start with "/"`},
		{"oneof", &permissionCheckRequest{Action: "destroy", Resource: "rooms"}, "action must be one of: read create update delete"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("message %q does not contain %q", err.Error(), tc.want)
			}
		})
	}

	if err := v.Validate(&guardRequest{Path: "/rooms"}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}
