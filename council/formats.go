package council

import (
	"fmt"
	"strings"

	"github.com/BaSui01/councilflow/types"
)

// DebateFormat selects the structured framing applied to argument prompts.
// The deliberation machinery (voting, consensus, elimination) is identical in
// every format; only the role each participant argues from changes.
type DebateFormat string

const (
	// FormatFreeform is the default unstructured deliberation.
	FormatFreeform DebateFormat = "freeform"
	// FormatOxford splits the roster into proposition and opposition teams
	// arguing a fixed motion.
	FormatOxford DebateFormat = "oxford"
	// FormatSocratic designates one questioner probing the respondents.
	FormatSocratic DebateFormat = "socratic"
	// FormatDevilsAdvocate designates one challenger stress-testing every
	// claim the proponents make.
	FormatDevilsAdvocate DebateFormat = "devils_advocate"
	// FormatParliamentary splits the roster into government and opposition
	// under formal parliamentary conventions.
	FormatParliamentary DebateFormat = "parliamentary"
)

// Format roles referenced from FormatConfig.Roles.
const (
	RoleProposition = "proposition"
	RoleOpposition  = "opposition"
	RoleQuestioner  = "questioner"
	RoleRespondent  = "respondent"
	RoleDevil       = "devil"
	RoleProponent   = "proponent"
	RoleGovernment  = "government"
)

// FormatConfig configures a structured debate format. The zero value means
// freeform. Roles maps participant key to format role; when empty the roles
// are assigned from roster order via AssignFormatRoles.
type FormatConfig struct {
	Format DebateFormat      `yaml:"format"`
	Motion string            `yaml:"motion"`
	Roles  map[string]string `yaml:"roles"`
}

func (c FormatConfig) enabled() bool {
	return c.Format != "" && c.Format != FormatFreeform
}

// AssignFormatRoles derives a role per participant from roster order:
// team formats put the first half on the leading side, challenger formats
// make the first participant the questioner or devil.
func AssignFormatRoles(format DebateFormat, roster types.Roster) map[string]string {
	roles := make(map[string]string, len(roster))
	switch format {
	case FormatOxford, FormatParliamentary:
		lead := RoleProposition
		if format == FormatParliamentary {
			lead = RoleGovernment
		}
		half := (len(roster) + 1) / 2
		for i, p := range roster {
			if i < half {
				roles[p.Key] = lead
			} else {
				roles[p.Key] = RoleOpposition
			}
		}
	case FormatSocratic:
		for i, p := range roster {
			if i == 0 {
				roles[p.Key] = RoleQuestioner
			} else {
				roles[p.Key] = RoleRespondent
			}
		}
	case FormatDevilsAdvocate:
		for i, p := range roster {
			if i == 0 {
				roles[p.Key] = RoleDevil
			} else {
				roles[p.Key] = RoleProponent
			}
		}
	}
	return roles
}

// validFormatRoles lists the roles each format accepts.
var validFormatRoles = map[DebateFormat][]string{
	FormatOxford:         {RoleProposition, RoleOpposition},
	FormatSocratic:       {RoleQuestioner, RoleRespondent},
	FormatDevilsAdvocate: {RoleDevil, RoleProponent},
	FormatParliamentary:  {RoleGovernment, RoleOpposition},
}

// normalize validates the format against the roster and fills default roles.
// Called once from NewEngine; the returned map covers every roster key.
func (c FormatConfig) normalize(roster types.Roster) (map[string]string, error) {
	if !c.enabled() {
		return nil, nil
	}
	valid, ok := validFormatRoles[c.Format]
	if !ok {
		return nil, types.NewErrorf(types.ErrConfiguration, "unknown debate format %q", c.Format)
	}
	if (c.Format == FormatOxford || c.Format == FormatParliamentary) && strings.TrimSpace(c.Motion) == "" {
		return nil, types.NewErrorf(types.ErrConfiguration, "%s format requires a motion", c.Format)
	}

	roles := c.Roles
	if len(roles) == 0 {
		roles = AssignFormatRoles(c.Format, roster)
	}

	counts := make(map[string]int, len(valid))
	for _, p := range roster {
		role, ok := roles[p.Key]
		if !ok {
			return nil, types.NewErrorf(types.ErrConfiguration,
				"participant %s has no role in %s format", p.Key, c.Format)
		}
		known := false
		for _, v := range valid {
			if role == v {
				known = true
				break
			}
		}
		if !known {
			return nil, types.NewErrorf(types.ErrConfiguration,
				"role %q is not valid in %s format", role, c.Format)
		}
		counts[role]++
	}

	switch c.Format {
	case FormatSocratic:
		if counts[RoleQuestioner] != 1 {
			return nil, types.NewError(types.ErrConfiguration, "socratic format requires exactly one questioner")
		}
	case FormatDevilsAdvocate:
		if counts[RoleDevil] != 1 {
			return nil, types.NewError(types.ErrConfiguration, "devils_advocate format requires exactly one devil")
		}
	default:
		for _, v := range valid {
			if counts[v] == 0 {
				return nil, types.NewErrorf(types.ErrConfiguration,
					"%s format requires at least one %s participant", c.Format, v)
			}
		}
	}
	return roles, nil
}

// formatPhase maps a round index onto the format's rhetorical phase.
func (e *Engine) formatPhase(round int) string {
	switch {
	case round == 0:
		return "opening"
	case round >= e.cfg.MaxIterations:
		return "closing"
	default:
		return "rebuttal"
	}
}

// formatFraming renders the format- and role-specific system prompt block
// for one participant in one phase.
func formatFraming(c FormatConfig, role, phase string) string {
	var sb strings.Builder
	switch c.Format {
	case FormatOxford:
		fmt.Fprintf(&sb, "FORMAT: Oxford debate on the motion %q. Your role: %s.\n", c.Motion, role)
		sb.WriteString("Address the judge and audience, not your opponents directly, and keep formal, persuasive language.\n")
		switch role {
		case RoleProposition:
			sb.WriteString("Defend the motion: provide evidence, anticipate opposition arguments, and build a persuasive case.\n")
		case RoleOpposition:
			sb.WriteString("Oppose the motion: expose weaknesses in the proposition case and offer alternative perspectives.\n")
		}
	case FormatSocratic:
		fmt.Fprintf(&sb, "FORMAT: Socratic dialogue. Your role: %s.\n", role)
		switch role {
		case RoleQuestioner:
			sb.WriteString("Ask probing questions only, never argue: clarify terms, surface assumptions, question evidence, and explore implications.\n")
			sb.WriteString("Begin each contribution with \"Question:\".\n")
		case RoleRespondent:
			sb.WriteString("Answer the questioner honestly, examine your own assumptions, and refine your position as the dialogue deepens. Admit uncertainty when you have it.\n")
		}
	case FormatDevilsAdvocate:
		fmt.Fprintf(&sb, "FORMAT: devil's advocate session. Your role: %s.\n", role)
		switch role {
		case RoleDevil:
			sb.WriteString("Challenge every claim constructively: demand evidence, expose weak logic, raise counter-examples and edge cases. The goal is to strengthen ideas through scrutiny.\n")
		case RoleProponent:
			sb.WriteString("Present your position with clear logic and provide evidence when challenged. Acknowledge valid criticism and refine your argument.\n")
		}
	case FormatParliamentary:
		fmt.Fprintf(&sb, "FORMAT: parliamentary debate on the motion %q. Your role: %s.\n", c.Motion, role)
		sb.WriteString("Address the Speaker and use formal parliamentary language.\n")
		switch role {
		case RoleGovernment:
			sb.WriteString("Propose and defend the motion; the burden of proof is yours. Define terms fairly and build the constructive case.\n")
		case RoleOpposition:
			sb.WriteString("Oppose the motion: challenge the government's definitions and rebut its case. You carry no burden to propose an alternative.\n")
		}
	default:
		return ""
	}

	switch phase {
	case "opening":
		sb.WriteString("Phase: opening statement. Lay out your main arguments.")
	case "rebuttal":
		sb.WriteString("Phase: rebuttal. Address the other side's points and reinforce your case.")
	case "closing":
		sb.WriteString("Phase: closing. Summarize why your side should prevail and address the key clashes.")
	}
	return sb.String()
}
