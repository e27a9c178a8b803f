package model

import "time"

// File 文件元数据，内容以 StorageKey 为对象名保存在对象存储中.
type File struct {
	ID         string     `gorm:"primaryKey;size:32"                 json:"id"`
	OwnerID    string     `gorm:"size:255;not null;index:idx_file_owner_folder" json:"owner_id"`
	FolderID   *string    `gorm:"size:32;index:idx_file_owner_folder;index"     json:"folder_id"`
	Name       string     `gorm:"size:255;not null"                  json:"name"`
	StorageKey string     `gorm:"size:512;not null;uniqueIndex"      json:"-"`
	MimeType   string     `gorm:"size:255"                           json:"mime_type"`
	SizeBytes  int64      `json:"size_bytes"`
	IsDeleted  bool       `gorm:"not null;default:false;index"       json:"is_deleted"`
	TrashedAt  *time.Time `gorm:"index"                              json:"trashed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (f *File) ResourceType() ResourceType { return ResourceFile }
func (f *File) ResourceID() string         { return f.ID }
func (f *File) Owner() string              { return f.OwnerID }
func (f *File) Parent() *string            { return f.FolderID }
func (f *File) Trashed() bool              { return f.IsDeleted }
