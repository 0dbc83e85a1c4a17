package service

import "errors"

// 哨兵错误：对外统一语义，隐藏底层实现细节。
// Handler 层通过 errors.Is 把它们映射为 HTTP 状态码和稳定的对外消息。
var (
	// ErrInvalidInput 请求参数不合法（长度、格式、取值范围）
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials 用户名或密码错误（登录时统一返回，防止用户枚举）
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound 用户不存在（仅用于非登录场景，如 GetProfile）
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists 用户已存在（注册时）
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrGroupNotFound 分组不存在（含指定的父分组不存在）
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupSlugConflict slug 已被占用：冲突要如实上报，不做静默改名
	ErrGroupSlugConflict = errors.New("group slug already exists")
	// ErrGroupCycle 重新挂载的目标父节点是自己或自己的子孙，会造成环
	ErrGroupCycle = errors.New("group cannot be moved into its own subtree")
	// ErrMediaNotFound 媒体记录不存在
	ErrMediaNotFound = errors.New("media not found")
	// ErrProductNotFound 商品标记不存在
	ErrProductNotFound = errors.New("product not found")
	// ErrAdvertisementNotFound 广告标记不存在
	ErrAdvertisementNotFound = errors.New("advertisement not found")
	// ErrFileTooLarge 上传文件超过配置的大小上限（在任何外部请求之前触发）
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	// ErrExternalService 外部 pinning/检测服务调用失败。
	// 返回给调用方时总是附带可操作的说明文字（如提示去网关控制台手动处理）。
	ErrExternalService = errors.New("external service failure")
	// ErrInternal 内部错误（对外不暴露细节）
	ErrInternal = errors.New("internal server error")
)
