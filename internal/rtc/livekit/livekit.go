package livekit

import (
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
)

// JoinInfo contains credentials for joining an interview's video room.
type JoinInfo struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

// Provider generates LiveKit join tokens for interview rooms. Rooms are
// created on demand when the first participant joins, so only the room
// name needs to be derived here.
type Provider struct {
	apiKey    string
	apiSecret string
	wsURL     string
}

// New creates a new Provider.
func New(apiKey, apiSecret, wsURL string) *Provider {
	return &Provider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
	}
}

// Enabled reports whether LiveKit credentials are configured.
func (p *Provider) Enabled() bool {
	return p != nil && p.apiKey != "" && p.apiSecret != ""
}

// GenerateJoinInfo creates join credentials for a participant of roomID.
func (p *Provider) GenerateJoinInfo(roomID, userID, name string) (*JoinInfo, error) {
	roomName := fmt.Sprintf("interview-%s", roomID)
	identity := fmt.Sprintf("user-%s", userID)

	at := auth.NewAccessToken(p.apiKey, p.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &JoinInfo{
		URL:      p.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: identity,
	}, nil
}
