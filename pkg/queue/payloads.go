package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ResourceRef 标识一个文件或文件夹.
type ResourceRef struct {
	Type string `json:"type"` // file | folder
	ID   string `json:"id"`
}

// ActivityPayload 审计记录.
type ActivityPayload struct {
	ActivityID string         `json:"activity_id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	Resource   ResourceRef    `json:"resource"`
	Context    map[string]any `json:"context,omitempty"`
}

// ResourceChangedPayload 资源状态变化（回收站、恢复、移动）.
type ResourceChangedPayload struct {
	Resource    ResourceRef `json:"resource"`
	ActorID     string      `json:"actor_id"`
	NewParentID *string     `json:"new_parent_id,omitempty"`
}

// ResourcePurgedPayload 永久删除结果.
type ResourcePurgedPayload struct {
	Root         ResourceRef `json:"root"`
	ActorID      string      `json:"actor_id"`
	FileIDs      []string    `json:"file_ids,omitempty"`
	FolderIDs    []string    `json:"folder_ids,omitempty"`
	Skipped      []string    `json:"skipped,omitempty"`       // 非本人所有而跳过的子项
	BlobFailures []string    `json:"blob_failures,omitempty"` // 对象删除失败的 storage_key
	DurationMS   int64       `json:"duration_ms,omitempty"`
}

// LinkPayload 公开链接的创建或删除，不携带 token 本身.
type LinkPayload struct {
	LinkID      string      `json:"link_id"`
	Resource    ResourceRef `json:"resource"`
	ActorID     string      `json:"actor_id"`
	HasPassword bool        `json:"has_password,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// SharePayload 协作者授权变化.
type SharePayload struct {
	ShareID  string      `json:"share_id"`
	Resource ResourceRef `json:"resource"`
	ActorID  string      `json:"actor_id"`
	Grantee  string      `json:"grantee"`
	Role     string      `json:"role,omitempty"`
}
