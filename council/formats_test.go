package council

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/councilflow/types"
)

func TestAssignFormatRoles(t *testing.T) {
	t.Parallel()

	roster := types.Roster{
		testParticipant("p1"), testParticipant("p2"),
		testParticipant("p3"), testParticipant("p4"),
	}

	oxford := AssignFormatRoles(FormatOxford, roster)
	assert.Equal(t, RoleProposition, oxford["p1"])
	assert.Equal(t, RoleProposition, oxford["p2"])
	assert.Equal(t, RoleOpposition, oxford["p3"])
	assert.Equal(t, RoleOpposition, oxford["p4"])

	parliamentary := AssignFormatRoles(FormatParliamentary, roster[:3])
	assert.Equal(t, RoleGovernment, parliamentary["p1"])
	assert.Equal(t, RoleGovernment, parliamentary["p2"])
	assert.Equal(t, RoleOpposition, parliamentary["p3"])

	socratic := AssignFormatRoles(FormatSocratic, roster)
	assert.Equal(t, RoleQuestioner, socratic["p1"])
	assert.Equal(t, RoleRespondent, socratic["p2"])

	devils := AssignFormatRoles(FormatDevilsAdvocate, roster)
	assert.Equal(t, RoleDevil, devils["p1"])
	assert.Equal(t, RoleProponent, devils["p4"])
}

func TestFormatConfigNormalize(t *testing.T) {
	t.Parallel()

	roster := types.Roster{testParticipant("p1"), testParticipant("p2"), testParticipant("p3")}

	tests := map[string]struct {
		cfg     FormatConfig
		wantErr string
	}{
		"freeform needs nothing": {
			cfg: FormatConfig{},
		},
		"unknown format": {
			cfg:     FormatConfig{Format: "fishbowl"},
			wantErr: "unknown debate format",
		},
		"oxford without motion": {
			cfg:     FormatConfig{Format: FormatOxford},
			wantErr: "requires a motion",
		},
		"oxford defaults split the roster": {
			cfg: FormatConfig{Format: FormatOxford, Motion: "This house believes"},
		},
		"oxford missing a side": {
			cfg: FormatConfig{Format: FormatOxford, Motion: "m", Roles: map[string]string{
				"p1": RoleProposition, "p2": RoleProposition, "p3": RoleProposition,
			}},
			wantErr: "at least one opposition",
		},
		"role unknown to format": {
			cfg: FormatConfig{Format: FormatOxford, Motion: "m", Roles: map[string]string{
				"p1": RoleDevil, "p2": RoleProposition, "p3": RoleOpposition,
			}},
			wantErr: "not valid",
		},
		"participant without role": {
			cfg: FormatConfig{Format: FormatSocratic, Roles: map[string]string{
				"p1": RoleQuestioner, "p2": RoleRespondent,
			}},
			wantErr: "has no role",
		},
		"socratic needs one questioner": {
			cfg: FormatConfig{Format: FormatSocratic, Roles: map[string]string{
				"p1": RoleQuestioner, "p2": RoleQuestioner, "p3": RoleRespondent,
			}},
			wantErr: "exactly one questioner",
		},
		"devils advocate needs one devil": {
			cfg: FormatConfig{Format: FormatDevilsAdvocate, Roles: map[string]string{
				"p1": RoleProponent, "p2": RoleProponent, "p3": RoleProponent,
			}},
			wantErr: "exactly one devil",
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			roles, err := tt.cfg.normalize(roster)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, types.ErrConfiguration, types.CodeOf(err))
				return
			}
			require.NoError(t, err)
			if tt.cfg.enabled() {
				assert.Len(t, roles, len(roster))
			}
		})
	}
}

func TestFormatFramingByPhase(t *testing.T) {
	t.Parallel()

	cfg := FormatConfig{Format: FormatOxford, Motion: "This house would ship weekly"}

	opening := formatFraming(cfg, RoleProposition, "opening")
	assert.Contains(t, opening, "This house would ship weekly")
	assert.Contains(t, opening, "Defend the motion")
	assert.Contains(t, opening, "Phase: opening statement")

	rebuttal := formatFraming(cfg, RoleOpposition, "rebuttal")
	assert.Contains(t, rebuttal, "Oppose the motion")
	assert.Contains(t, rebuttal, "Phase: rebuttal")

	closing := formatFraming(cfg, RoleOpposition, "closing")
	assert.Contains(t, closing, "Phase: closing")

	socratic := formatFraming(FormatConfig{Format: FormatSocratic}, RoleQuestioner, "rebuttal")
	assert.Contains(t, socratic, "Ask probing questions only")

	devil := formatFraming(FormatConfig{Format: FormatDevilsAdvocate}, RoleDevil, "rebuttal")
	assert.Contains(t, devil, "Challenge every claim")

	assert.Empty(t, formatFraming(FormatConfig{}, "", "opening"))
}

func TestEngineRunOxfordFormat(t *testing.T) {
	t.Parallel()

	f := newFixture("p1", "p2", "p3", "p4")
	f.cfg.Format = FormatConfig{Format: FormatOxford, Motion: "This house would adopt the plan"}

	state, err := f.engine(t, f.deps()).Run(context.Background(), "Adopt the plan?")
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosed, state.Status)

	systemOf := func(key string, call int) string {
		chat := f.chats[key]
		require.Greater(t, chat.CallCount(), call)
		return chat.Calls[call].Messages[0].Content
	}

	// Roster order puts p1/p2 on proposition and p3/p4 on opposition.
	opening := systemOf("p1", 0)
	assert.Contains(t, opening, "Oxford debate")
	assert.Contains(t, opening, "This house would adopt the plan")
	assert.Contains(t, opening, "Defend the motion")
	assert.Contains(t, opening, "Phase: opening statement")

	assert.Contains(t, systemOf("p4", 0), "Oppose the motion")

	// Round 1 of 3 maximum is a rebuttal.
	assert.Contains(t, systemOf("p2", 1), "Phase: rebuttal")

	// Votes keep the neutral persona prompt.
	voteSystem := systemOf("p3", 2)
	assert.NotContains(t, voteSystem, "FORMAT:")
	assert.True(t, strings.HasPrefix(voteSystem, "You are P3"))
}

func TestEngineRejectsFormatWithCollaboration(t *testing.T) {
	t.Parallel()

	f := newFixture("p1", "p2")
	f.cfg.Format = FormatConfig{Format: FormatOxford, Motion: "m"}
	f.cfg.Collaboration = CollaborationConfig{Enabled: true}

	_, err := NewEngine(f.cfg, f.roster, f.deps())
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.CodeOf(err))
}
