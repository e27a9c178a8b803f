package secure

// NewTokenFrom 仅测试使用，允许注入随机源.
var NewTokenFrom = newToken
