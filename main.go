package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "legadoApi/docs"

	"legadoApi/internal/cifra"
	"legadoApi/internal/config"
	"legadoApi/internal/legado"
	"legadoApi/internal/legado/ealuno"
	"legadoApi/internal/legado/sge"
	"legadoApi/internal/sessao"
)

// @title Luminar Legado API
// @version 1.0
// @description Proxy de sessão entre o Luminar e os sistemas legados SGE e e-aluno (frequência, conteúdo, ocorrências, relatórios).
// @host localhost:8080
// @BasePath /
func main() {
	// .env é conveniência de desenvolvimento; em produção as variáveis vêm
	// do ambiente.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Carregar()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}

	codec, err := cifra.New(cfg.ChaveSenha)
	if err != nil {
		log.Fatal().Err(err).Msg("erro ao montar codec de senha")
	}

	clientes := []legado.Cliente{
		sge.New(sessao.Config{
			BaseURL:          cfg.SGEURL,
			Timeout:          cfg.Timeout,
			TimeoutRelatorio: cfg.TimeoutRelatorio,
		}, log),
		ealuno.New(sessao.Config{
			BaseURL:          cfg.EAlunoURL,
			Timeout:          cfg.Timeout,
			TimeoutRelatorio: cfg.TimeoutRelatorio,
		}, log),
	}

	servidor := NewServidor(codec, clientes, log)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://luminar.app.br"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.Use(middlewareRequisicao(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	servidor.registrarRotas(router)

	log.Info().Str("porta", cfg.Porta).Msg("servidor no ar")
	if err := router.Run(":" + cfg.Porta); err != nil {
		log.Fatal().Err(err).Msg("servidor encerrou com erro")
	}
}

// middlewareRequisicao marca cada requisição com um ID e registra método e
// rota. Corpo e credenciais nunca vão para o log.
func middlewareRequisicao(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("requisicaoId", id)
		log.Info().
			Str("requisicaoId", id).
			Str("metodo", c.Request.Method).
			Str("rota", c.FullPath()).
			Msg("requisição recebida")
		c.Next()
	}
}
