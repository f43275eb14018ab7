package blackboard

// claimTaskScript implements claim_task's atomicity requirement as a single
// scripted round-trip (spec §4.1's "single scripted round-trip" option):
// read-check-write-reindex all happen inside Redis's single-threaded Lua
// execution, so no two callers ever observe success for the same task (I1).
//
// KEYS[1] = task hash key
// KEYS[2] = pending-status priority zset key
// KEYS[3] = claimed-status priority zset key
// KEYS[4] = agent task index set key
// ARGV[1] = task id
// ARGV[2] = claiming agent id
// ARGV[3] = now, ISO-8601
//
// Returns 1 on success, 0 if the task is absent or not pending.
const claimTaskScript = `
local raw = redis.call('HGET', KEYS[1], 'data')
if not raw then
  return 0
end
local task = cjson.decode(raw)
if task['status'] ~= 'pending' then
  return 0
end
task['status'] = 'claimed'
task['agent_id'] = ARGV[2]
task['claimed_at'] = ARGV[3]
redis.call('HSET', KEYS[1], 'data', cjson.encode(task))
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], task['priority'], ARGV[1])
redis.call('SADD', KEYS[4], ARGV[1])
return 1
`

// updateTaskStatusScript validates and applies a task status transition in
// one round-trip, enforcing I2 (only the holding agent may complete/fail a
// task) and re-indexing the priority/timestamp structures atomically.
//
// KEYS[1] = task hash key
// KEYS[2] = from-status priority zset key
// KEYS[3] = to-status priority zset key
// KEYS[4] = to-status timestamp zset key (ignored unless ARGV[9] == "1")
// ARGV[1] = task id
// ARGV[2] = new status
// ARGV[3] = now, ISO-8601
// ARGV[4] = now, epoch seconds
// ARGV[5] = output_data JSON, or the literal "null"
// ARGV[6] = error_details JSON, or the literal "null"
// ARGV[7] = expected agent id (the caller asserting it holds the task)
// ARGV[8] = expected current status
// ARGV[9] = "1" if the destination status has a timestamp index, else "0"
//
// Returns 0 (not found), 1 (current status no longer matches, stale
// caller view), 2 (unauthorized actor), or 3 (success).
const updateTaskStatusScript = `
local raw = redis.call('HGET', KEYS[1], 'data')
if not raw then
  return 0
end
local task = cjson.decode(raw)
if task['agent_id'] ~= ARGV[7] then
  return 2
end
if task['status'] ~= ARGV[8] then
  return 1
end
task['status'] = ARGV[2]
if ARGV[5] ~= 'null' then
  task['output_data'] = cjson.decode(ARGV[5])
end
if ARGV[6] ~= 'null' then
  task['error_details'] = cjson.decode(ARGV[6])
end
if ARGV[2] == 'completed' or ARGV[2] == 'failed' then
  task['completed_at'] = ARGV[3]
end
redis.call('HSET', KEYS[1], 'data', cjson.encode(task))
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], task['priority'], ARGV[1])
if ARGV[9] == '1' then
  redis.call('ZADD', KEYS[4], ARGV[4], ARGV[1])
end
return 3
`
