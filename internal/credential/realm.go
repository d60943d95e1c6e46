package credential

import (
	"strings"

	"github.com/tnunamak/usagemeter/internal/host"
)

// RealmAuto picks the realm order from the environment.
const RealmAuto = "auto"

// SelectRealms returns the realms to probe, in order. An explicit mode naming
// a realm pins it. In auto mode the secondary realm goes first only when its
// dedicated key variable is set; otherwise primary leads.
func SelectRealms(h *host.Context, mode, primary, secondary, secondaryKey string) []string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case strings.ToLower(primary):
		return []string{primary}
	case strings.ToLower(secondary):
		return []string{secondary}
	}
	if _, _, ok := FirstEnv(h, secondaryKey); ok {
		return []string{secondary, primary}
	}
	return []string{primary, secondary}
}
