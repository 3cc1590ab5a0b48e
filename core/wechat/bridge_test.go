package wechat

import (
	"testing"

	"ComfyPortal/model"
)

func sampleDetail() *UserDetail {
	return &UserDetail{
		UserID:     "zhangsan",
		Name:       "张三",
		Mobile:     "13800000000",
		Email:      "zhangsan@haers.com",
		Avatar:     "https://wework.qpic.cn/avatar/zhangsan",
		Position:   "设计师",
		Department: []int{1, 2},
	}
}

func TestResolveUser_CreatesOnFirstLogin(t *testing.T) {
	repo := newMockUserRepo()
	bridge := NewBridge(repo, nil)

	user, err := bridge.ResolveUser(sampleDetail())
	if err != nil {
		t.Fatalf("首次登录应创建账号: %v", err)
	}

	if user.Username != "张三" {
		t.Errorf("期望用户名为企微姓名，实际=%s", user.Username)
	}
	if user.Email != "zhangsan@haers.com" {
		t.Errorf("期望使用企微邮箱，实际=%s", user.Email)
	}
	if user.Credits != model.DefaultCredits {
		t.Errorf("期望初始积分=%d，实际=%d", model.DefaultCredits, user.Credits)
	}
	if !user.WechatUserID.Valid || user.WechatUserID.String != "zhangsan" {
		t.Errorf("wechat_userid 应已保存: %+v", user.WechatUserID)
	}
	if user.WechatDepartment.String != "1,2" {
		t.Errorf("部门列表应逗号拼接，实际=%s", user.WechatDepartment.String)
	}
	if user.PasswordHash == "" || user.PasswordHash == placeholderPassword {
		t.Error("密码位应为占位符哈希")
	}
}

func TestResolveUser_SynthesizesEmailWhenMissing(t *testing.T) {
	repo := newMockUserRepo()
	bridge := NewBridge(repo, nil)

	detail := sampleDetail()
	detail.Email = ""

	user, err := bridge.ResolveUser(detail)
	if err != nil {
		t.Fatalf("ResolveUser 应成功: %v", err)
	}
	if user.Email != "zhangsan@company.com" {
		t.Errorf("缺失邮箱应合成默认值，实际=%s", user.Email)
	}
}

func TestResolveUser_FallbackUsernameWhenNameEmpty(t *testing.T) {
	repo := newMockUserRepo()
	bridge := NewBridge(repo, nil)

	detail := sampleDetail()
	detail.Name = ""

	user, err := bridge.ResolveUser(detail)
	if err != nil {
		t.Fatalf("ResolveUser 应成功: %v", err)
	}
	if user.Username != "user_zhangsan" {
		t.Errorf("无姓名时应使用默认用户名，实际=%s", user.Username)
	}
}

func TestResolveUser_NameCollisionNeverMerges(t *testing.T) {
	repo := newMockUserRepo()
	// 已有一个同名的本地账号，不是企微身份
	localID, _ := repo.CreateUser(&model.User{
		Username:     "张三",
		Email:        "local@company.com",
		PasswordHash: "x",
		Credits:      model.DefaultCredits,
	})

	bridge := NewBridge(repo, nil)
	user, err := bridge.ResolveUser(sampleDetail())
	if err != nil {
		t.Fatalf("用户名冲突时应回退而非失败: %v", err)
	}

	if user.Username != "user_zhangsan" {
		t.Errorf("冲突时应使用默认用户名，实际=%s", user.Username)
	}
	if user.ID == localID {
		t.Error("不应合并到已有本地账号")
	}

	local, _ := repo.GetUserByID(localID)
	if local.WechatUserID.Valid {
		t.Error("本地账号不应被写入企微身份")
	}
	if n, _ := repo.CountUsers(); n != 2 {
		t.Errorf("应存在两个独立账号，实际=%d", n)
	}
}

func TestResolveUser_SameNameDifferentIdentities(t *testing.T) {
	repo := newMockUserRepo()
	bridge := NewBridge(repo, nil)

	first, err := bridge.ResolveUser(sampleDetail())
	if err != nil {
		t.Fatalf("第一个身份应创建成功: %v", err)
	}

	// 同名但不同企微身份
	second := sampleDetail()
	second.UserID = "zhangsan2"

	other, err := bridge.ResolveUser(second)
	if err != nil {
		t.Fatalf("第二个身份应创建成功: %v", err)
	}

	if other.ID == first.ID {
		t.Fatal("不同企微身份必须解析为不同账号")
	}
	if other.Username != "user_zhangsan2" {
		t.Errorf("同名冲突应回退默认用户名，实际=%s", other.Username)
	}
	if n, _ := repo.CountUsers(); n != 2 {
		t.Errorf("应存在两个账号，实际=%d", n)
	}
}

func TestResolveUser_UpdateTouchesOnlyProfile(t *testing.T) {
	repo := newMockUserRepo()
	bridge := NewBridge(repo, nil)

	created, err := bridge.ResolveUser(sampleDetail())
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	originalHash := created.PasswordHash

	// 第二次登录：姓名与部门变了
	detail := sampleDetail()
	detail.Name = "张三丰"
	detail.Department = []int{3}
	detail.Mobile = "13900000000"

	updated, err := bridge.ResolveUser(detail)
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}

	if updated.ID != created.ID {
		t.Fatal("同一企微身份应解析到同一账号")
	}
	if updated.Username != created.Username {
		t.Errorf("更新不应改写用户名，实际=%s", updated.Username)
	}
	if updated.Email != created.Email {
		t.Errorf("更新不应改写邮箱，实际=%s", updated.Email)
	}

	stored, _ := repo.GetUserByID(created.ID)
	if stored.WechatName.String != "张三丰" {
		t.Errorf("档案字段应已更新，实际=%s", stored.WechatName.String)
	}
	if stored.WechatDepartment.String != "3" {
		t.Errorf("部门应已更新，实际=%s", stored.WechatDepartment.String)
	}
	if stored.Credits != model.DefaultCredits {
		t.Errorf("更新不应改写积分，实际=%d", stored.Credits)
	}
	if stored.PasswordHash != originalHash {
		t.Error("更新不应改写密码")
	}
	if n, _ := repo.CountUsers(); n != 1 {
		t.Errorf("不应创建重复账号，实际=%d", n)
	}
}

func TestFlattenDepartments(t *testing.T) {
	cases := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{}, ""},
		{[]int{5}, "5"},
		{[]int{1, 2, 10}, "1,2,10"},
	}
	for _, tc := range cases {
		if got := flattenDepartments(tc.in); got != tc.want {
			t.Errorf("flattenDepartments(%v)：期望%q，实际=%q", tc.in, tc.want, got)
		}
	}
}
