package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/common/middleware"
	"github.com/hashicorp/consul/api"
)

// ServiceRegistry Consul服务注册。注册/注销经过熔断器：
// Consul 不可用时快速失败，不拖慢服务启动与退出。
type ServiceRegistry struct {
	client    *api.Client
	serviceID string
	service   string
	address   string
	port      int
	tags      []string
	check     *api.AgentServiceCheck
	breaker   *middleware.CircuitBreaker
}

// NewServiceRegistry 创建服务注册器（gRPC 健康检查探测）
func NewServiceRegistry(client *api.Client, serviceID, service, address string, port int, tags []string) *ServiceRegistry {
	return &ServiceRegistry{
		client:    client,
		serviceID: serviceID,
		service:   service,
		address:   address,
		port:      port,
		tags:      tags,
		check: &api.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d", address, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
		breaker: middleware.NewCircuitBreaker("consul-registry", 3, 30*time.Second),
	}
}

// Register 注册服务
func (r *ServiceRegistry) Register() error {
	registration := &api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    r.service,
		Tags:    r.tags,
		Address: r.address,
		Port:    r.port,
		Check:   r.check,
	}
	return r.breaker.Call(context.Background(), func() error {
		return r.client.Agent().ServiceRegister(registration)
	})
}

// Deregister 注销服务
func (r *ServiceRegistry) Deregister() error {
	return r.breaker.Call(context.Background(), func() error {
		return r.client.Agent().ServiceDeregister(r.serviceID)
	})
}

// NewConsulClient 创建Consul客户端
func NewConsulClient(host string, port int) (*api.Client, error) {
	config := api.DefaultConfig()
	config.Address = fmt.Sprintf("%s:%d", host, port)
	return api.NewClient(config)
}

// HealthyInstances 查询某服务当前健康实例的地址列表。
// 管理接口的依赖巡检用，不做客户端负载均衡。
func HealthyInstances(client *api.Client, service string) ([]string, error) {
	services, _, err := client.Health().Service(service, "", true, nil)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(services))
	for _, s := range services {
		addrs = append(addrs, fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port))
	}
	return addrs, nil
}
