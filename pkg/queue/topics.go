// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：dv.<域>.<动作>，尽量稳定且向后兼容.
// 域：activity(审计)、resource(文件与文件夹)、link(公开链接)、share(协作者授权).

const (
	// 审计领域.
	TopicActivityRecorded = "dv.activity.recorded" // 一次成功变更后写入的审计记录

	// 资源领域.
	TopicResourceTrashed  = "dv.resource.trashed"  // 移入回收站
	TopicResourceRestored = "dv.resource.restored" // 从回收站恢复
	TopicResourcePurged   = "dv.resource.purged"   // 永久删除（含级联子项）
	TopicResourceMoved    = "dv.resource.moved"    // 父目录变更

	// 公开链接领域.
	TopicLinkCreated = "dv.link.created" // 新链接（同时取代旧链接）
	TopicLinkDeleted = "dv.link.deleted" // 链接被创建者删除

	// 协作者授权领域.
	TopicShareCreated = "dv.share.created"
	TopicShareDeleted = "dv.share.deleted"
)

// AllTopics 返回全部已定义主题，供 CLI 订阅与调试使用.
func AllTopics() []string {
	return []string{
		TopicActivityRecorded,
		TopicResourceTrashed,
		TopicResourceRestored,
		TopicResourcePurged,
		TopicResourceMoved,
		TopicLinkCreated,
		TopicLinkDeleted,
		TopicShareCreated,
		TopicShareDeleted,
	}
}
