// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"

	"github.com/jeranaias/guide-tui/internal/api"
)

// ProfileManager loads and saves the account profile. Email and join
// date are immutable; the backend ignores them on update and so does
// this client.
type ProfileManager struct {
	client *api.Client
}

// NewProfileManager creates a profile manager over the gateway.
func NewProfileManager(client *api.Client) *ProfileManager {
	return &ProfileManager{client: client}
}

// Load fetches the current profile.
func (p *ProfileManager) Load(ctx context.Context) (*api.Profile, error) {
	return p.client.GetProfile(ctx)
}

// Save validates and writes the mutable fields. A non-empty phone
// number must be exactly 10 digits; the check runs before any network
// call.
func (p *ProfileManager) Save(ctx context.Context, firstName, lastName, phoneNumber string) (*api.Profile, error) {
	if phoneNumber != "" && !phonePattern.MatchString(phoneNumber) {
		return nil, &ValidationError{Reason: msgInvalidPhone}
	}
	return p.client.UpdateProfile(ctx, api.ProfileUpdate{
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: phoneNumber,
	})
}
