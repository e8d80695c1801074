// Package access maps profile roles onto the capabilities the services check.
package access

import "societyhub/internal/model"

// Capability names a privileged action.
type Capability string

const (
	CapManageFacilities  Capability = "manage_facilities"
	CapDecideBookings    Capability = "decide_bookings"
	CapManageVisitorGate Capability = "manage_visitor_gate"
	CapManageMaintenance Capability = "manage_maintenance"
	CapManagePolls       Capability = "manage_polls"
	CapRecordPayments    Capability = "record_payments"
	CapManageMembers     Capability = "manage_members"
	CapManageEvents      Capability = "manage_events"
)

var roleCapabilities = map[model.Role]map[Capability]bool{
	model.RoleAdmin: {
		CapManageFacilities:  true,
		CapDecideBookings:    true,
		CapManageVisitorGate: true,
		CapManageMaintenance: true,
		CapManagePolls:       true,
		CapRecordPayments:    true,
		CapManageMembers:     true,
		CapManageEvents:      true,
	},
	model.RoleSecretary: {
		CapManageFacilities:  true,
		CapDecideBookings:    true,
		CapManageMaintenance: true,
		CapManagePolls:       true,
		CapRecordPayments:    true,
		CapManageEvents:      true,
	},
	model.RoleSecurity: {
		CapManageVisitorGate: true,
	},
	model.RoleMember: {},
}

// Can reports whether the role carries the capability.
func Can(role model.Role, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// IsStaff reports whether the role is a staff role.
func IsStaff(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleSecretary
}
