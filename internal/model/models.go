package model

// AllModels 参与自动迁移的模型
// 被引用的表在前
var AllModels = []interface{}{
	&User{},
	&AuthToken{},
	&Workflow{},
	&Template{},
	&Chat{},
	&Message{},
}
