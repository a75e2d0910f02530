package application

import (
	"fmt"
	"sort"
	"strings"
)

// Policy maps an operator role to the capabilities it grants.
type Policy map[string][]Capability

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		"admin":     {CapabilityCheckout, CapabilityCheckin, CapabilityReserve},
		"custodian": {CapabilityCheckout, CapabilityCheckin, CapabilityReserve},
		"frontdesk": {CapabilityReserve},
		"auditor":   {},
	}
}

// ParsePolicy validates a role to capability-name mapping such as the one read
// from the policy file.
func ParsePolicy(raw map[string][]string) (Policy, error) {
	verr := &ValidationError{}
	policy := make(Policy, len(raw))
	for role, names := range raw {
		key := strings.ToLower(strings.TrimSpace(role))
		if key == "" {
			verr.add("role", "must not be empty")
			continue
		}
		caps := make([]Capability, 0, len(names))
		for _, name := range names {
			capability, err := ParseCapability(name)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			caps = append(caps, capability)
		}
		policy[key] = caps
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return policy, nil
}

// Principal builds the principal for an operator. Unknown roles get no capabilities.
func (p Policy) Principal(actorID, role string) Principal {
	caps := p[strings.ToLower(strings.TrimSpace(role))]
	return Principal{
		ActorID:      actorID,
		Role:         role,
		Capabilities: append([]Capability(nil), caps...),
	}
}

// Roles lists the configured roles in sorted order.
func (p Policy) Roles() []string {
	roles := make([]string, 0, len(p))
	for role := range p {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// HasRole reports whether role is configured.
func (p Policy) HasRole(role string) bool {
	_, ok := p[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

func (p Policy) String() string {
	parts := make([]string, 0, len(p))
	for _, role := range p.Roles() {
		parts = append(parts, fmt.Sprintf("%s=%v", role, p[role]))
	}
	return strings.Join(parts, " ")
}
