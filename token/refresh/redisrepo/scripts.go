package redisrepo

import "github.com/redis/go-redis/v9"

const (
	insertStatusDuplicate int64 = 0
	insertStatusInserted  int64 = 1
)

const (
	transitionStatusNotFound     int64 = 0
	transitionStatusTransitioned int64 = 1
	transitionStatusReplaced     int64 = 2
)

const revokeStatusNotFound int64 = -1

// KEYS: record, hash index, user index
// ARGV: id, user id, token hash, device id, issued at, expires at, status
const insertScript = `
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1],
  "user_id", ARGV[2],
  "token_hash", ARGV[3],
  "device_id", ARGV[4],
  "issued_at", ARGV[5],
  "expires_at", ARGV[6],
  "status", ARGV[7],
  "replaced_by", "",
  "revoked_at", "",
  "revoked_reason", "")
redis.call("SET", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[5], ARGV[1])
return 1
`

// KEYS: record, next link of the record, prev link of the successor
// ARGV: successor id, record id
const transitionScript = `
local status = redis.call("HGET", KEYS[1], "status")
if not status then
  return 0
end
if status ~= "active" then
  return 2
end
redis.call("HSET", KEYS[1], "status", "replaced", "replaced_by", ARGV[1])
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SET", KEYS[3], ARGV[2])
return 1
`

// ARGV: key prefix, record id, reason, revoked at
const revokeChainScript = `
local prefix = ARGV[1]
if redis.call("EXISTS", prefix .. ":rec:" .. ARGV[2]) == 0 then
  return -1
end

local root = ARGV[2]
while true do
  local p = redis.call("GET", prefix .. ":prev:" .. root)
  if not p then
    break
  end
  root = p
end

local count = 0
local current = root
while current do
  local key = prefix .. ":rec:" .. current
  local status = redis.call("HGET", key, "status")
  if status and status ~= "revoked" then
    redis.call("HSET", key, "status", "revoked", "replaced_by", "", "revoked_at", ARGV[4], "revoked_reason", ARGV[3])
    count = count + 1
  end
  current = redis.call("GET", prefix .. ":next:" .. current)
end
return count
`

// KEYS: user index
// ARGV: key prefix, reason, revoked at, "1" to filter by device, device id
const revokeUserScript = `
local count = 0
local ids = redis.call("ZRANGE", KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  local key = ARGV[1] .. ":rec:" .. id
  local fields = redis.call("HMGET", key, "status", "device_id")
  if fields[1] and fields[1] ~= "revoked" and (ARGV[4] ~= "1" or fields[2] == ARGV[5]) then
    redis.call("HSET", key, "status", "revoked", "replaced_by", "", "revoked_at", ARGV[3], "revoked_reason", ARGV[2])
    count = count + 1
  end
end
return count
`

var (
	insertLua      = redis.NewScript(insertScript)
	transitionLua  = redis.NewScript(transitionScript)
	revokeChainLua = redis.NewScript(revokeChainScript)
	revokeUserLua  = redis.NewScript(revokeUserScript)
)
