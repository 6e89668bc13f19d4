package loan

import (
	"fmt"
	"time"
)

// Status 借用申请状态枚举（持久化为字符串）。
type Status string

const (
	StatusPending         Status = "pending"          // 已创建，待保管人签字
	StatusCustodianSigned Status = "custodian_signed" // 保管人已同意，待协调人审批
	StatusApproved        Status = "approved"         // 协调人已批准，待门卫放行
	StatusOnLoan          Status = "on_loan"          // 已出门（借用中）
	StatusReturned        Status = "returned"         // 已归还，流程了结
	StatusRejected        Status = "rejected"         // 任一审批环节被拒（终态）
	StatusCancelled       Status = "cancelled"        // 申请人主动取消（终态）
)

// Stage 签字环节标签。门卫的出门/入门是两个显式环节，
// 不再靠同一标签下的行序区分。
type Stage string

const (
	StageCustodian   Stage = "custodian"
	StageCoordinator Stage = "coordinator"
	StageGuardExit   Stage = "guard_exit"
	StageGuardEntry  Stage = "guard_entry"
)

// AllowTransition 借用申请状态机的允许流转关系（有向图配置）。
var AllowTransition = map[Status][]Status{
	StatusPending:         {StatusCustodianSigned, StatusRejected, StatusCancelled},
	StatusCustodianSigned: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusOnLoan, StatusRejected},
	StatusOnLoan:          {StatusReturned},
	// 终态：不允许再流转
	StatusReturned:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

// stageFrom 各签字环节要求的当前状态（顺序审批的前置条件）。
var stageFrom = map[Stage]Status{
	StageCustodian:   StatusPending,
	StageCoordinator: StatusCustodianSigned,
	StageGuardExit:   StatusApproved,
	StageGuardEntry:  StatusOnLoan,
}

// stageApproved 各环节同意后到达的状态。
var stageApproved = map[Stage]Status{
	StageCustodian:   StatusCustodianSigned,
	StageCoordinator: StatusApproved,
	StageGuardExit:   StatusOnLoan,
	StageGuardEntry:  StatusReturned,
}

// CanTransition 判断 from -> to 是否是允许的状态流转。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StageRequiredStatus 签字环节要求的当前状态；未知环节返回 false。
func StageRequiredStatus(stage Stage) (Status, bool) {
	s, ok := stageFrom[stage]
	return s, ok
}

// StageOutcome 环节签字后的目标状态。门卫的两个环节没有“拒绝”
// 分支：到了门口只存在放行与登记两种事实动作。
func StageOutcome(stage Stage, approved bool) (Status, bool) {
	to, ok := stageApproved[stage]
	if !ok {
		return "", false
	}
	if !approved {
		if stage == StageGuardExit || stage == StageGuardEntry {
			return "", false
		}
		return StatusRejected, true
	}
	return to, true
}

// Terminal 判断状态是否为终态。
func Terminal(s Status) bool {
	allowed, ok := AllowTransition[s]
	return ok && len(allowed) == 0
}

// ApplyTransition 对申请应用状态变更，并维护各阶段时间字段。
// 仅在 CanTransition 返回 true 时生效。
func ApplyTransition(r *Request, to Status, now time.Time) error {
	if r == nil {
		return fmt.Errorf("request is nil")
	}
	from := r.Status
	if from != to && !CanTransition(from, to) {
		return fmt.Errorf("invalid loan status transition: %s -> %s", from, to)
	}

	r.Status = to

	switch to {
	case StatusCustodianSigned:
		if r.CustodianSignedAt == nil {
			t := now
			r.CustodianSignedAt = &t
		}
	case StatusApproved:
		if r.ApprovedAt == nil {
			t := now
			r.ApprovedAt = &t
		}
	case StatusOnLoan:
		if r.ExitAt == nil {
			t := now
			r.ExitAt = &t
		}
	case StatusReturned:
		if r.ReturnedAt == nil {
			t := now
			r.ReturnedAt = &t
		}
	case StatusRejected:
		if r.RejectedAt == nil {
			t := now
			r.RejectedAt = &t
		}
	case StatusCancelled:
		if r.CancelledAt == nil {
			t := now
			r.CancelledAt = &t
		}
	}
	return nil
}
