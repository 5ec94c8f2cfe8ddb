package contract

import "errors"

// 最小错误分类（用于上层退出码与日志 code 判定）。
var (
	// ErrPathInvalid: 目标路径无效（空路径、目录等）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用方输入不满足前置条件。
	ErrInvalidInput = errors.New("invalid input")
	// ErrProtocolViolation: 输入违反行协议且策略要求中止（unterminated=error）。
	ErrProtocolViolation = errors.New("protocol violation")
)
