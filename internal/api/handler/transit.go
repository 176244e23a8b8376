package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/pkg/response"
)

// transit 流转类接口的公共流程：取当前用户 → 绑定请求体 → 调用服务。
// 字段全部可选的动作允许不带请求体，此时仍执行结构体校验（如 submit-to-admin 的 admin_id）。
func transit(c *gin.Context, req interface{}, call func(actor *model.User) (*dto.TransitionResponse, error)) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var err error
	if c.Request.ContentLength == 0 {
		err = binding.Validator.ValidateStruct(req)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		bindFailed(c, err)
		return
	}

	result, err := call(actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
