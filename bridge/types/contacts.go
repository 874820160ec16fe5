package types

// 成员权限的线上编码：普通成员 1，管理员 2，群主 3
const (
	PermissionMember        int32 = 1
	PermissionAdministrator int32 = 2
	PermissionOwner         int32 = 3
)

type FriendInfo struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Remark   string `json:"remark"`
}

type GroupInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MemberCount int32  `json:"memberCount"` // 不含机器人自身
}

type MemberInfo struct {
	GroupID      int64  `json:"groupId"`
	ID           int64  `json:"id"`
	Nickname     string `json:"nickname"`
	Card         string `json:"card"`
	Permission   int32  `json:"permission"` // 1/2/3
	SpecialTitle string `json:"specialTitle"`
}
