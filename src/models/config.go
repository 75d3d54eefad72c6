package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	Detector   MDetectorConfig   `yaml:"detector"`
	Schedule   MScheduleConfig   `yaml:"schedule"`
	Supervisor MSupervisorConfig `yaml:"supervisor"`
	Feed       MFeedConfig       `yaml:"feed"`
	Auth       MAuthConfig       `yaml:"auth"`
	Telegram   MTelegramConfig   `yaml:"telegram"`
	Summary    MSummaryConfig    `yaml:"summary"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	DBSchema           string `yaml:"db_schema"`
	DataRetentionDays  int    `yaml:"data_retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

// MDetectorConfig holds the spike classification thresholds.
type MDetectorConfig struct {
	IndividualTradeThreshold float64 `yaml:"individual_trade_threshold"`
	MinVolumeSpike           int64   `yaml:"min_volume_spike"`
	CooldownSeconds          int     `yaml:"cooldown_seconds"`
	DispatchQueueSize        int     `yaml:"dispatch_queue_size"`
	SinkTimeoutSeconds       int     `yaml:"sink_timeout_seconds"`
	RecentAlerts             int     `yaml:"recent_alerts"`
}

type MScheduleConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Timezone        string `yaml:"timezone"`
	Start           string `yaml:"start"`
	End             string `yaml:"end"`
	CalendarMIC     string `yaml:"calendar_mic"`
	TradingDaysOnly bool   `yaml:"trading_days_only"`
}

type MSupervisorConfig struct {
	WindowPollSeconds        int `yaml:"window_poll_seconds"`
	RunningPollSeconds       int `yaml:"running_poll_seconds"`
	AuthCheckIntervalSeconds int `yaml:"auth_check_interval_seconds"`
	StopGraceSeconds         int `yaml:"stop_grace_seconds"`
	RetryDelaySeconds        int `yaml:"retry_delay_seconds"`
	ErrorDelaySeconds        int `yaml:"error_delay_seconds"`
	MaxRestarts              int `yaml:"max_restarts"`
	RestartWindowSeconds     int `yaml:"restart_window_seconds"`
	RestartPauseSeconds      int `yaml:"restart_pause_seconds"`
}

type MFeedConfig struct {
	URL      string            `yaml:"url"`
	ClientID string            `yaml:"client_id"`
	DataType string            `yaml:"data_type"`
	Symbols  []string          `yaml:"symbols"`
	Sectors  map[string]string `yaml:"sectors"`
}

type MAuthConfig struct {
	TokenFile        string `yaml:"token_file"`
	TokenMaxAgeHours int    `yaml:"token_max_age_hours"`
}

type MTelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIURL   string `yaml:"api_url"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type MSummaryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	SendTime        string `yaml:"send_time"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	TopN            int    `yaml:"top_n"`
}

// LogLevelName lets the logger pick its level from any config wrapper.
func (c *MConfig) LogLevelName() string {
	return c.LogLevel
}
