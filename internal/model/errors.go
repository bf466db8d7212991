package model

import "errors"

// 各外部依赖的失败类型。均在源头记录日志后以 %w 包装返回，由调用方决定是否跳过。
var (
	ErrConnectFailed = errors.New("connect failed")
	ErrFetchFailed   = errors.New("fetch failed")
	ErrInsertFailed  = errors.New("insert failed")
	ErrPublishFailed = errors.New("publish failed")
)
