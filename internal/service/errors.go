package service

import (
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// ── 业务错误（按分类构建，errors.Is 可同时匹配哨兵与分类） ──

var (
	// NotFound
	ErrTimesheetNotFound = pkgerrors.New(pkgerrors.KindNotFound, "工时表不存在")
	ErrEntryNotFound     = pkgerrors.New(pkgerrors.KindNotFound, "工时明细不存在")
	ErrUserNotFound      = pkgerrors.New(pkgerrors.KindNotFound, "用户不存在")
	ErrProjectNotFound   = pkgerrors.New(pkgerrors.KindNotFound, "项目不存在")
	ErrPrincipalUnknown  = pkgerrors.New(pkgerrors.KindNotFound, "无法识别当前用户")

	// InvalidTransition
	ErrInvalidTransition = pkgerrors.New(pkgerrors.KindInvalidTransition, "当前状态不允许该操作")

	// Unauthorized
	ErrNotOwner           = pkgerrors.New(pkgerrors.KindUnauthorized, "仅工时表本人可执行该操作")
	ErrNotApprover        = pkgerrors.New(pkgerrors.KindUnauthorized, "无权审批该工时表")
	ErrAdminOnly          = pkgerrors.New(pkgerrors.KindUnauthorized, "仅管理员可执行该操作")
	ErrTeamLeadOnly       = pkgerrors.New(pkgerrors.KindUnauthorized, "仅当前审批组长可转交管理员")
	ErrTimesheetForbidden = pkgerrors.New(pkgerrors.KindUnauthorized, "无权查看该工时表")
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.KindUnauthorized, "邮箱或密码错误")

	// Conflict
	ErrVersionConflict = pkgerrors.New(pkgerrors.KindConflict, "工时表已被修改，请刷新后重试")

	// ValidationFailed
	ErrEmptyTimesheet     = pkgerrors.New(pkgerrors.KindValidationFailed, "工时表至少需要一条明细才能提交")
	ErrCommentRequired    = pkgerrors.New(pkgerrors.KindValidationFailed, "驳回必须填写意见")
	ErrNoApprover         = pkgerrors.New(pkgerrors.KindValidationFailed, "未指定审批人且没有直属上级")
	ErrApproverInvalid    = pkgerrors.New(pkgerrors.KindValidationFailed, "审批人必须是组长或管理员")
	ErrApproverIsOwner    = pkgerrors.New(pkgerrors.KindValidationFailed, "审批人不能是工时表本人")
	ErrAdminTargetInvalid = pkgerrors.New(pkgerrors.KindValidationFailed, "转交对象必须是管理员")
	ErrHoursOutOfRange    = pkgerrors.New(pkgerrors.KindValidationFailed, "工时超出允许范围")
	ErrHoursPrecision     = pkgerrors.New(pkgerrors.KindValidationFailed, "工时最多保留两位小数")
	ErrDateInvalid        = pkgerrors.New(pkgerrors.KindValidationFailed, "日期格式错误")
	ErrDateOutOfPeriod    = pkgerrors.New(pkgerrors.KindValidationFailed, "日期不在工时表所属月份内")
	ErrEntryProject       = pkgerrors.New(pkgerrors.KindValidationFailed, "项目不存在或已停用")
	ErrEntryTask          = pkgerrors.New(pkgerrors.KindValidationFailed, "任务不存在或不属于该项目")
	ErrEntryForeign       = pkgerrors.New(pkgerrors.KindValidationFailed, "明细不属于该工时表")
	ErrProjectCodeExists  = pkgerrors.New(pkgerrors.KindValidationFailed, "项目编码已存在")
	ErrProjectInactive    = pkgerrors.New(pkgerrors.KindValidationFailed, "项目已停用")

	// ReadOnlyState
	ErrReadOnlyState = pkgerrors.New(pkgerrors.KindReadOnlyState, "工时表当前状态为只读")
)
