// Package entity 定义领域实体
package entity

// Role 消息角色枚举
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid 判断角色是否合法
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}
