package errors

import (
	"errors"
	"net/http"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Code 稳定的机器可读错误码（对外契约，不可随意更改）
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeShiftNotFound     Code = "SHIFT_NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeCapacityConflict  Code = "CAPACITY_CONFLICT"
	CodeDirtyData         Code = "DIRTY_DATA"
	CodeRaceCondition     Code = "RACE_CONDITION"
	CodeDuplicateRequest  Code = "DUPLICATE_REQUEST"
	CodeAlreadyClockedIn  Code = "ALREADY_CLOCKED_IN"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL"
)

// codeMeta 错误码 → HTTP 状态 + 数字业务码
type codeMeta struct {
	status int
	num    int
}

var codeTable = map[Code]codeMeta{
	CodeValidation:        {http.StatusBadRequest, 40001},
	CodeUnauthorized:      {http.StatusUnauthorized, 40101},
	CodeForbidden:         {http.StatusForbidden, 40301},
	CodeNotFound:          {http.StatusNotFound, 40401},
	CodeShiftNotFound:     {http.StatusNotFound, 40402},
	CodeInvalidTransition: {http.StatusConflict, 40901},
	CodeInvalidState:      {http.StatusConflict, 40902},
	CodeCapacityConflict:  {http.StatusConflict, 40903},
	CodeRaceCondition:     {http.StatusConflict, 40904},
	CodeDuplicateRequest:  {http.StatusConflict, 40905},
	CodeAlreadyClockedIn:  {http.StatusConflict, 40906},
	CodeDirtyData:         {http.StatusUnprocessableEntity, 42201},
	CodeRateLimited:       {http.StatusTooManyRequests, 42901},
	CodeInternal:          {http.StatusInternalServerError, 50000},
}

// HTTPStatus 返回错误码对应的 HTTP 状态码，未登记的码按 500 处理
func (c Code) HTTPStatus() int {
	if m, ok := codeTable[c]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Number 返回数字业务码
func (c Code) Number() int {
	if m, ok := codeTable[c]; ok {
		return m.num
	}
	return 50000
}

// AppError 业务错误：稳定错误码 + 可读信息 + 可选详情
type AppError struct {
	Code    Code
	Message string
	Details any
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is 仅按错误码比较，使 errors.Is(err, ErrXxx) 对 WithDetails/WithMessage 派生的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建业务错误
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// WithDetails 复制错误并附带详情（如 DIRTY_DATA 的 worker id 列表）
func (e *AppError) WithDetails(details any) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Details: details}
}

// WithMessage 复制错误并替换可读信息，错误码不变
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Details: e.Details}
}

// As 从错误链中提取 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf 返回错误链中的错误码；非业务错误视为 INTERNAL
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}
