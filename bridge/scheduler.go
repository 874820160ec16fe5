package bridge

import (
	"sync"

	"go.uber.org/zap"
)

// scheduler 承载桥接的所有后台任务。两条队列：会话任务要求机器人
// 在线才可执行，通用任务（媒体下载等）不依赖会话。任务失败只在
// 这里统一落日志。
type scheduler struct {
	sessionQ chan func() error
	generalQ chan func() error

	live func() bool

	inflight sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

func newScheduler(workers int, live func() bool) *scheduler {
	if workers <= 0 {
		workers = 4
	}
	s := &scheduler{
		sessionQ: make(chan func() error, 256),
		generalQ: make(chan func() error, 256),
		live:     live,
		stopped:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go s.worker(s.sessionQ, true)
		go s.worker(s.generalQ, false)
	}
	return s
}

func (s *scheduler) worker(q chan func() error, sessionAffine bool) {
	log := zap.S().Named("bridge")
	for {
		select {
		case <-s.stopped:
			return
		case task := <-q:
			if sessionAffine && s.live != nil && !s.live() {
				// 会话在任务排队期间断开，放弃执行
				log.Warn("dropping session task: bot session is not live")
				s.inflight.Done()
				continue
			}
			if err := task(); err != nil {
				log.Errorf("async task failed: %v", err)
			}
			s.inflight.Done()
		}
	}
}

// submitSession 提交一个必须在会话存活时执行的任务，返回是否已受理
func (s *scheduler) submitSession(task func() error) bool {
	return s.submit(s.sessionQ, task)
}

// submitGeneral 提交一个与会话无关的任务，返回是否已受理
func (s *scheduler) submitGeneral(task func() error) bool {
	return s.submit(s.generalQ, task)
}

func (s *scheduler) submit(q chan func() error, task func() error) bool {
	s.inflight.Add(1)
	select {
	case <-s.stopped:
		s.inflight.Done()
		return false
	default:
	}
	select {
	case q <- task:
		return true
	case <-s.stopped:
		s.inflight.Done()
		return false
	}
}

// waitIdle 等待所有已提交任务完成，测试用
func (s *scheduler) waitIdle() {
	s.inflight.Wait()
}

func (s *scheduler) stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
}
