package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "fluxport"
)

// Ключи состояния
const (
	// RedisKeyPolicyDisabled — runtime kill switch движка политик.
	// Пока ключ существует, все инстансы ведут себя как при policy.enabled=false.
	RedisKeyPolicyDisabled = RedisNamespace + ":policy:disabled"
	RedisKeyWarmupLock     = RedisNamespace + ":lock:warmup:policy"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanPolicyUpdate — сигнал публикации новой версии: инстансы
	// сбрасывают TTL-кэш документа и перечитывают его лениво.
	RedisChanPolicyUpdate = RedisNamespace + ":policy:update"
	// RedisChanKillSwitch — трансляция включения/выключения kill switch
	RedisChanKillSwitch = RedisNamespace + ":policy:kill-switch-signal"
)

// PolicyUpdateLockKey Генератор ключей для блокировок публикации (если нужны динамические)
func PolicyUpdateLockKey(typeKey string) string {
	return fmt.Sprintf("%s:lock:publish:%s", RedisNamespace, typeKey)
}
