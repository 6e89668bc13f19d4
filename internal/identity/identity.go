package identity

import "strings"

// 系统内置角色。角色目录本身存于 refdata，这里只定义核心流程
// 会做能力判断的几个固定角色名。
const (
	RoleRequester   = "requester"   // 借用申请人
	RoleCustodian   = "custodian"   // 资产保管人
	RoleCoordinator = "coordinator" // 审批协调人
	RoleGuard       = "guard"       // 门卫（出门放行/入门登记）
	RoleRegistry    = "registry"    // 资产登记员
)

// Caller 一次调用的主体身份，由身份提供方（JWT）解析得到，
// 作为显式参数传入每个核心操作，不走任何隐式会话状态。
type Caller struct {
	PersonID   string
	ActiveRole string
	HeldRoles  []string
}

// HasCapability 能力集判断：一个人可同时持有多个角色，
// 只要声明的当前角色或持有角色中包含 role 即视为具备能力。
func (c Caller) HasCapability(role string) bool {
	role = normalize(role)
	if role == "" {
		return false
	}
	if normalize(c.ActiveRole) == role {
		return true
	}
	for _, r := range c.HeldRoles {
		if normalize(r) == role {
			return true
		}
	}
	return false
}

// Valid 最低限度的身份校验。
func (c Caller) Valid() bool {
	return strings.TrimSpace(c.PersonID) != ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
