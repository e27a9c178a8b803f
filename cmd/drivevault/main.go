// Package main 启动应用程序
package main

import "github.com/yeisme/drivevault/pkg/cmd"

//	@title			DriveVault API
//	@version		0.1.0
//	@description	带层级权限继承、回收站级联与公开链接的文件存储服务.

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
