// cmd/web/main.go
package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/LuisEduardoPedra/apuraDifal/internal/api/handlers"
	"github.com/LuisEduardoPedra/apuraDifal/internal/api/middleware"
	"github.com/LuisEduardoPedra/apuraDifal/internal/api/responses"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/auth"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/converter"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/difal"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/sped"
	"github.com/gin-gonic/gin"
)

// initFirestoreClient initializes the Firestore client.
func initFirestoreClient(ctx context.Context) *firestore.Client {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		projectID = "apura-difal-db"
	}
	databaseID := projectID
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		log.Fatalf("Erro ao inicializar cliente Firestore para o banco '%s': %v\n", databaseID, err)
	}
	log.Printf("Conectado com sucesso ao Firestore, banco de dados: %s", databaseID)
	return client
}

func main() {
	responses.InitLogger()
	ctx := context.Background()
	firestoreClient := initFirestoreClient(ctx)
	defer firestoreClient.Close()

	spedService := sped.NewService()
	difalService := difal.NewService()
	converterService := converter.NewService()
	authService := auth.NewService(firestoreClient)

	difalHandler := handlers.NewDifalHandler(spedService, difalService)
	beneficiosHandler := handlers.NewBeneficiosHandler(converterService, spedService)
	authHandler := handlers.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/login", authHandler.Login)
		protected := apiV1.Group("/")
		protected.Use(middleware.AuthMiddleware(nil))
		protected.Use(middleware.PermissionMiddleware("difal"))
		{
			protected.POST("/difal/parse", difalHandler.HandleParse)
			protected.POST("/difal/calculate", difalHandler.HandleCalculate)
			protected.POST("/difal/beneficios/import", beneficiosHandler.HandleImportPlano)
		}
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Servidor iniciado e escutando na porta %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Falha ao iniciar o servidor: ", err)
	}
}
